package pdfcp

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Etat is the reconciliation layer of an action line.
type Etat string

const (
	EtatConcerte Etat = "CONCERTE"
	EtatCP       Etat = "CP"
	EtatExecute  Etat = "EXECUTE"
)

func (e Etat) Valid() bool {
	switch e {
	case EtatConcerte, EtatCP, EtatExecute:
		return true
	}
	return false
}

const (
	ExecPlanifie = "planifie"
	ExecEnCours  = "en_cours"
	ExecTermine  = "termine"
	ExecAnnule   = "annule"
	ExecBloque   = "bloque"
)

const (
	LigneCPAccepte = "accepte"
	LigneCPAjuste  = "ajuste"
	LigneCPReporte = "reporte"
	LigneCPRejete  = "rejete"
)

var ExecutionStatuses = []string{ExecPlanifie, ExecEnCours, ExecTermine, ExecAnnule, ExecBloque}
var LigneCPStatuses = []string{LigneCPAccepte, LigneCPAjuste, LigneCPReporte, LigneCPRejete}

type Proof struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
}

// Action is one line of a program for a given layer, year and action key.
type Action struct {
	ID          uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	PdfcpID     uuid.UUID `gorm:"type:char(36);not null;index:idx_pdfcp_actions_key,priority:1;column:pdfcp_id" json:"pdfcp_id"`
	Etat        Etat      `gorm:"type:varchar(16);not null;index;column:etat" json:"etat"`
	Year        int       `gorm:"not null;index:idx_pdfcp_actions_key,priority:2;column:year" json:"year"`
	ActionKey   string    `gorm:"type:varchar(128);not null;index:idx_pdfcp_actions_key,priority:3;column:action_key" json:"action_key"`
	ActionLabel string    `gorm:"type:varchar(255);column:action_label" json:"action_label,omitempty"`
	ActionType  string    `gorm:"type:varchar(64);column:action_type" json:"action_type,omitempty"`
	Unite       string    `gorm:"type:varchar(32);column:unite" json:"unite,omitempty"`
	Physique    float64   `gorm:"not null;default:0;column:physique" json:"physique"`
	Financier   float64   `gorm:"not null;default:0;column:financier" json:"financier"`

	CommuneID   *uuid.UUID `gorm:"type:char(36);index;column:commune_id" json:"commune_id,omitempty"`
	PerimetreID string     `gorm:"type:varchar(128);column:perimetre_id" json:"perimetre_id,omitempty"`
	SiteID      string     `gorm:"type:varchar(128);column:site_id" json:"site_id,omitempty"`

	SourcePlanLineID *uuid.UUID `gorm:"type:char(36);index;column:source_plan_line_id" json:"source_plan_line_id,omitempty"`
	SourceCPLineID   *uuid.UUID `gorm:"type:char(36);index;column:source_cp_line_id" json:"source_cp_line_id,omitempty"`

	JustificationEcart string     `gorm:"type:text;column:justification_ecart" json:"justification_ecart,omitempty"`
	DateRealisation    *time.Time `gorm:"column:date_realisation" json:"date_realisation,omitempty"`
	StatutExecution    string     `gorm:"type:varchar(16);column:statut_execution" json:"statut_execution,omitempty"`
	StatutLigneCP      string     `gorm:"type:varchar(16);column:statut_ligne_cp" json:"statut_ligne_cp,omitempty"`

	Preuves      datatypes.JSONSlice[Proof] `gorm:"column:preuves" json:"preuves"`
	Notes        string                     `gorm:"type:text;column:notes" json:"notes,omitempty"`
	Locked       bool                       `gorm:"not null;default:false;column:locked" json:"locked"`
	GeometryType string                     `gorm:"type:varchar(32);column:geometry_type" json:"geometry_type,omitempty"`
	Coordinates  datatypes.JSON             `gorm:"column:coordinates" json:"coordinates,omitempty"`

	CreatedBy *uuid.UUID     `gorm:"type:char(36);column:created_by" json:"created_by,omitempty"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Action) TableName() string { return "pdfcp_actions" }

func (a *Action) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// ActionGeo holds the derived geometry values of one action line.
type ActionGeo struct {
	ID                 uuid.UUID      `gorm:"type:char(36);primaryKey" json:"id"`
	PlannedActionID    uuid.UUID      `gorm:"type:char(36);uniqueIndex;not null;column:planned_action_id" json:"planned_action_id"`
	PdfcpID            uuid.UUID      `gorm:"type:char(36);index;not null;column:pdfcp_id" json:"pdfcp_id"`
	GeometryType       string         `gorm:"type:varchar(32);not null;column:geometry_type" json:"geometry_type"`
	Geometry           datatypes.JSON `gorm:"column:geometry" json:"geometry"`
	CentroidLat        float64        `gorm:"column:centroid_lat" json:"centroid_lat"`
	CentroidLng        float64        `gorm:"column:centroid_lng" json:"centroid_lng"`
	SurfaceRealiseeHa  *float64       `gorm:"column:surface_realisee_ha" json:"surface_realisee_ha,omitempty"`
	LongueurRealiseeKm *float64       `gorm:"column:longueur_realisee_km" json:"longueur_realisee_km,omitempty"`
	CreatedAt          time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null" json:"updated_at"`
}

func (ActionGeo) TableName() string { return "pdfcp_actions_geo" }

func (g *ActionGeo) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}
