package model

import (
	"encoding/json"
	"time"
)

// Category is the legal nature of an ingested court document.
type Category string

const (
	// CategoryAuto is an internal court order (acuerdo, proveído).
	CategoryAuto Category = "auto"
	// CategoryPromotion is a filing submitted by a party (demanda,
	// contestación, alegatos).
	CategoryPromotion Category = "promotion"
	// CategoryResolution is a court ruling short of final judgment.
	CategoryResolution Category = "resolution"
	// CategoryJudgment is a final or binding decision (sentencia).
	CategoryJudgment Category = "judgment"
)

// AllCategories returns the valid document categories.
func AllCategories() []Category {
	return []Category{
		CategoryAuto,
		CategoryPromotion,
		CategoryResolution,
		CategoryJudgment,
	}
}

// ParseCategory validates a raw category value. Anything outside the four
// enumerated values (including the empty string) yields ("", false): an
// unclassified document.
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategoryAuto, CategoryPromotion, CategoryResolution, CategoryJudgment:
		return Category(s), true
	}
	return "", false
}

// Label returns the Spanish display label used across the firm's UI.
func (c Category) Label() string {
	switch c {
	case CategoryAuto:
		return "Auto"
	case CategoryPromotion:
		return "Promoción"
	case CategoryResolution:
		return "Resolución"
	case CategoryJudgment:
		return "Sentencia"
	default:
		return "Sin clasificar"
	}
}

// Update is one ingested document event attached to a court proceeding
// (juicio). A zero DocumentDate and a nil AIRawResponse persist as NULL.
type Update struct {
	ID            string          `json:"id"`
	JuicioID      string          `json:"juicio_id"`
	Category      Category        `json:"tipo,omitempty"`
	Title         string          `json:"titulo,omitempty"`
	Summary       string          `json:"sintesis,omitempty"`
	DocumentDate  time.Time       `json:"fecha_documento,omitzero"`
	DocumentPath  string          `json:"documento_path,omitempty"`
	DocumentName  string          `json:"documento_nombre,omitempty"`
	AIAnalyzed    bool            `json:"ai_analyzed"`
	AIRawResponse json.RawMessage `json:"ai_raw_response,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// HasDocument reports whether the update has a stored file attached.
func (u *Update) HasDocument() bool {
	return u.DocumentPath != ""
}
