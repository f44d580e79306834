package domain

// Status is the lifecycle state of an administrative act.
type Status string

const (
	StatusDraft               Status = "draft"
	StatusAwaitingSignature   Status = "awaiting_signature"
	StatusSigned              Status = "signed"
	StatusAwaitingPublication Status = "awaiting_publication"
	StatusPublished           Status = "published"
	StatusInForce             Status = "in_force"
	StatusRevoked             Status = "revoked"
)

// Statuses lists every status in forward order, revoked last.
var Statuses = []Status{
	StatusDraft,
	StatusAwaitingSignature,
	StatusSigned,
	StatusAwaitingPublication,
	StatusPublished,
	StatusInForce,
	StatusRevoked,
}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Finalized reports whether the act has been signed (or gone further).
func (s Status) Finalized() bool {
	switch s {
	case StatusSigned, StatusAwaitingPublication, StatusPublished, StatusInForce, StatusRevoked:
		return true
	}
	return false
}

// Category is the purpose tag that selects validation rules and templates.
type Category string

const (
	CategoryAppointment            Category = "appointment"
	CategoryDismissal              Category = "dismissal"
	CategoryDesignation            Category = "designation"
	CategoryDismissalOfDesignation Category = "dismissal_of_designation"
	CategoryPlacement              Category = "placement"
	CategoryLeave                  Category = "leave"
	CategorySubstitution           Category = "substitution"
	CategoryNormative              Category = "normative"
	CategoryOther                  Category = "other"
)

var Categories = []Category{
	CategoryAppointment,
	CategoryDismissal,
	CategoryDesignation,
	CategoryDismissalOfDesignation,
	CategoryPlacement,
	CategoryLeave,
	CategorySubstitution,
	CategoryNormative,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// InstrumentKind is the type of legal instrument, e.g. "portaria".
type InstrumentKind string

const InstrumentPortaria InstrumentKind = "portaria"

// Subject is a person bound by an act, with what a clause needs to name them.
type Subject struct {
	SubjectID     string `json:"subject_id"`
	FullName      string `json:"full_name"`
	TaxID         string `json:"tax_id"`
	PositionLabel string `json:"position_label,omitempty"`
	PositionCode  string `json:"position_code,omitempty"`
}


// Gazette is the official publication record.
type Gazette struct {
	Number string `json:"number"`
	Date   string `json:"date" format:"date"`
}

type Revocation struct {
	Reason    string `json:"reason"`
	RevokedAt string `json:"revoked_at" format:"date-time"`
}

// Act is an administrative act ("portaria").
type Act struct {
	ID              string         `json:"id"`
	Number          string         `json:"number"`
	Year            int            `json:"year"`
	InstrumentKind  InstrumentKind `json:"instrument_kind"`
	Category        Category       `json:"category"`
	Status          Status         `json:"status"`
	DocumentDate    string         `json:"document_date" format:"date"`
	SummaryText     string         `json:"summary_text,omitempty"`
	Subjects        []Subject      `json:"subjects"`
	RelatedPosition *string        `json:"related_position,omitempty"`
	RelatedUnit     *string        `json:"related_unit,omitempty"`
	Gazette         *Gazette       `json:"gazette,omitempty"`
	Supersedes      *string        `json:"supersedes,omitempty"`
	Revocation      *Revocation    `json:"revocation,omitempty"`
	Notes           string         `json:"notes,omitempty"`
	Version         int64          `json:"version"`
	CreatedAt       string         `json:"created_at" format:"date-time"`
	UpdatedAt       string         `json:"updated_at" format:"date-time"`
}

// Clone returns a deep copy so callers can mutate without aliasing the
// original's slices and pointers.
func (a Act) Clone() Act {
	c := a
	if a.Subjects != nil {
		c.Subjects = make([]Subject, len(a.Subjects))
		copy(c.Subjects, a.Subjects)
	}
	c.RelatedPosition = cloneString(a.RelatedPosition)
	c.RelatedUnit = cloneString(a.RelatedUnit)
	c.Supersedes = cloneString(a.Supersedes)
	if a.Gazette != nil {
		g := *a.Gazette
		c.Gazette = &g
	}
	if a.Revocation != nil {
		r := *a.Revocation
		c.Revocation = &r
	}
	return c
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Corrections are the named slots a retification may alter. Nil means the
// slot is not being corrected.
type Corrections struct {
	Position      *string `json:"position,omitempty"`
	Unit          *string `json:"unit,omitempty"`
	SubjectName   *string `json:"subject_name,omitempty"`
	EffectiveDate *string `json:"effective_date,omitempty" format:"date"`
	// SubjectRow picks the printed row (1-based) SubjectName corrects.
	// Required when the original binds more than one subject.
	SubjectRow *int `json:"subject_row,omitempty" minimum:"1"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}
