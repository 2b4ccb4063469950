package models

import (
	"time"
)

// CanonicalStatus is the application's status enumeration for a case
type CanonicalStatus string

const (
	StatusInProgress CanonicalStatus = "EM_ANDAMENTO"
	StatusSuspended  CanonicalStatus = "SUSPENSO"
	StatusArchived   CanonicalStatus = "ARQUIVADO"
	StatusConcluded  CanonicalStatus = "CONCLUIDO"
)

// PartyRole is the procedural side a party stands on
type PartyRole string

const (
	RolePlaintiff            PartyRole = "AUTOR"
	RoleDefendant            PartyRole = "REU"
	RoleThirdPartyInterested PartyRole = "TERCEIRO_INTERESSADO"
)

// ExtractedCase is a snapshot of one case as rendered by the portal
// @Description Structured case data extracted from the portal result page
type ExtractedCase struct {
	CaseNumber       string          `json:"caseNumber" example:"0002688-54.2024.8.16.0136"`
	Comarca          *string         `json:"comarca" example:"CURITIBA"`
	Vara             *string         `json:"vara" example:"1ª Vara Cível"`
	Foro             *string         `json:"foro" example:"Foro Central"`
	StatusRaw        *string         `json:"statusRaw" example:"Processo em andamento"`
	Status           CanonicalStatus `json:"status" example:"EM_ANDAMENTO"`
	DistributionDate *string         `json:"distributionDate" example:"12/03/2024"`
	FilingDate       *string         `json:"filingDate" example:"11/03/2024"`
	ClaimValueRaw    *string         `json:"claimValueRaw" example:"R$ 1.234,56"`
	ClaimValue       *float64        `json:"claimValue" example:"1234.56"`
	Subject          *string         `json:"subject" example:"Indenização por Dano Moral"`
	Class            *string         `json:"class" example:"Procedimento Comum Cível"`
	Area             *string         `json:"area" example:"Cível"`
	Parties          []Party         `json:"parties"`
	Movements        []Movement      `json:"movements"`
	ExtractedAt      time.Time       `json:"extractedAt" example:"2024-03-15T10:30:00Z"`
}

// Party is one litigant listed on the case
type Party struct {
	Role    PartyRole `json:"role" example:"AUTOR"`
	RoleRaw string    `json:"roleRaw" example:"Requerente"`
	Name    string    `json:"name" example:"FULANO DE TAL"`
	TaxID   *string   `json:"taxId,omitempty" example:"123.456.789-00"`
}

// Movement is one docket entry
type Movement struct {
	Date        string `json:"date" example:"15/03/2024"`
	Description string `json:"description" example:"Juntada de Petição"`
}

// ConsultaIniciada is returned by the first phase of a consultation
// @Description Session handle and CAPTCHA image for the human to solve
type ConsultaIniciada struct {
	SessionID        string    `json:"sessionId" example:"4f9c1b7e0a..."`
	CaptchaImage     string    `json:"captchaImage" example:"data:image/png;base64,iVBORw0KGgo..."`
	CaseNumber       string    `json:"caseNumber" example:"0002688-54.2024.8.16.0136"`
	CheckDigitsValid bool      `json:"checkDigitsValid" example:"true"`
	ExpiresAt        time.Time `json:"expiresAt" example:"2024-03-15T10:45:00Z"`
}

// QuotaInfo is a read-only view over a user's quota record
type QuotaInfo struct {
	UserID           string `json:"userId" example:"42"`
	Remaining        int    `json:"remaining" example:"97"`
	SecondsUntilNext int    `json:"secondsUntilNext" example:"0"`
	UsedToday        int    `json:"usedToday" example:"3"`
	DailyLimit       int    `json:"dailyLimit" example:"100"`
}

// IniciarConsultaRequest is the body of the start endpoint
type IniciarConsultaRequest struct {
	CaseNumber string `json:"caseNumber" binding:"required" example:"0002688-54.2024.8.16.0136"`
	UserID     string `json:"userId" binding:"required" example:"42"`
}

// ResolverCaptchaRequest is the body of the resolve endpoint. An empty
// answer still reaches the service, which consumes the session.
type ResolverCaptchaRequest struct {
	CaptchaAnswer string `json:"captchaAnswer" example:"x7k2p"`
	UserID        string `json:"userId" binding:"required" example:"42"`
}
