package field

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/anef-maroc/pdfcp-backend/internal/rbac"
)

var JournalCategories = []string{
	"reunion", "animation", "animation_territoriale", "mediation", "diagnostic", "suivi_chantier",
	"suivi_pdfcp", "sensibilisation", "organisation_usagers", "partenariats", "activite_admin", "autre",
}

const (
	PrioriteFaible  = "Faible"
	PrioriteMoyenne = "Moyenne"
	PrioriteElevee  = "Élevée"
)

var JournalPriorites = []string{PrioriteFaible, PrioriteMoyenne, PrioriteElevee}

const (
	StatutBrouillon          = "Brouillon"
	StatutValideADP          = "Validé ADP"
	StatutTransmisHierarchie = "Transmis hiérarchie"
)

var JournalStatuts = []string{StatutBrouillon, StatutValideADP, StatutTransmisHierarchie}

// JournalEntry is one page of an agent's field logbook (cahier journal).
type JournalEntry struct {
	ID          uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	EntryDate   time.Time `gorm:"not null;index;column:entry_date" json:"entry_date"`
	Title       string    `gorm:"type:varchar(255);not null;column:title" json:"title"`
	Description string    `gorm:"type:text;column:description" json:"description,omitempty"`
	Category    string    `gorm:"type:varchar(32);not null;default:'autre';column:category" json:"category"`

	LocationText   string     `gorm:"type:varchar(255);column:location_text" json:"location_text,omitempty"`
	Latitude       *float64   `gorm:"column:latitude" json:"latitude,omitempty"`
	Longitude      *float64   `gorm:"column:longitude" json:"longitude,omitempty"`
	PdfcpID        *uuid.UUID `gorm:"type:char(36);index;column:pdfcp_id" json:"pdfcp_id,omitempty"`
	PerimetreLabel string     `gorm:"type:varchar(255);column:perimetre_label" json:"perimetre_label,omitempty"`
	SiteLabel      string     `gorm:"type:varchar(255);column:site_label" json:"site_label,omitempty"`

	Anchored
	UserID *uuid.UUID `gorm:"type:char(36);index;column:user_id" json:"user_id,omitempty"`

	ParticipantsCount       int            `gorm:"not null;default:0;column:participants_count" json:"participants_count"`
	OrganisationsConcernees datatypes.JSON `gorm:"column:organisations_concernees" json:"organisations_concernees,omitempty"`
	TempsPasseMin           int            `gorm:"not null;default:0;column:temps_passe_min" json:"temps_passe_min"`
	Priorite                string         `gorm:"type:varchar(16);not null;default:'Moyenne';column:priorite" json:"priorite"`
	StatutValidation        string         `gorm:"type:varchar(32);not null;default:'Brouillon';column:statut_validation" json:"statut_validation"`

	ResultatsObtenus       string `gorm:"type:text;column:resultats_obtenus" json:"resultats_obtenus,omitempty"`
	DecisionsPrises        string `gorm:"type:text;column:decisions_prises" json:"decisions_prises,omitempty"`
	ProchainesEtapes       string `gorm:"type:text;column:prochaines_etapes" json:"prochaines_etapes,omitempty"`
	ContraintesRencontrees string `gorm:"type:text;column:contraintes_rencontrees" json:"contraintes_rencontrees,omitempty"`

	BesoinAppuiHierarchique bool   `gorm:"not null;default:false;column:besoin_appui_hierarchique" json:"besoin_appui_hierarchique"`
	JustificationAppui      string `gorm:"type:text;column:justification_appui" json:"justification_appui,omitempty"`

	Attachments datatypes.JSON `gorm:"column:attachments" json:"attachments,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (JournalEntry) TableName() string { return "cahier_journal_entries" }

func (j *JournalEntry) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.Priorite == "" {
		j.Priorite = PrioriteMoyenne
	}
	if j.StatutValidation == "" {
		j.StatutValidation = StatutBrouillon
	}
	if j.Category == "" {
		j.Category = "autre"
	}
	return nil
}

func (j JournalEntry) ScopeAnchors() rbac.Anchors { return j.Anchored.anchors(j.UserID) }

// OwnedBy reports whether id authored the entry or is its agent.
func (j JournalEntry) OwnedBy(id uuid.UUID) bool {
	if id == uuid.Nil {
		return false
	}
	return (j.UserID != nil && *j.UserID == id) || (j.AdpUserID != nil && *j.AdpUserID == id)
}
