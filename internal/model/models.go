// Package model holds the records exchanged with the remote dashboard API.
// JSON tags follow the remote wire format.
package model

import (
	"strings"
)

// ProductType classifies the service a client subscribes to.
type ProductType string

const (
	ProductIPTV  ProductType = "IPTV"
	ProductVPN   ProductType = "VPN"
	ProductOther ProductType = "OUTROS"
	// ProductGeneral is only valid for templates that apply to every product.
	ProductGeneral ProductType = "GERAL"
)

// ProductTypes lists the product types a client can have.
var ProductTypes = []ProductType{ProductIPTV, ProductVPN, ProductOther}

// ParseProductType normalises a client product type.
func ParseProductType(raw string) (ProductType, bool) {
	p := ProductType(strings.ToUpper(strings.TrimSpace(raw)))
	switch p {
	case ProductIPTV, ProductVPN, ProductOther:
		return p, true
	case "OTHER":
		return ProductOther, true
	}
	return "", false
}

// Client represents a subscriber tracked by the dashboard.
type Client struct {
	ID                int64       `json:"id"`
	FullName          string      `json:"nome_completo"`
	Phone             string      `json:"telefone"`
	ProductType       ProductType `json:"tipo_produto"`
	Plan              string      `json:"plano_contratado"`
	PlanValue         float64     `json:"valor_plano"`
	ExpiresOn         string      `json:"data_vencimento"`
	SendTime          string      `json:"horario_envio,omitempty"`
	TemplateID        *int64      `json:"template_mensagem_id"`
	CustomMessage     *string     `json:"mensagem_personalizada"`
	NoticeEnabled     bool        `json:"aviso_ativo"`
	NoticeDaysAhead   int         `json:"dias_aviso_antecedencia"`
	NoticeTime        *string     `json:"horario_aviso"`
	Comment           *string     `json:"comentarios"`
	LastCommentAt     *string     `json:"data_ultimo_comentario"`
	Active            bool        `json:"ativo"`
	LastMessageSentAt *string     `json:"ultima_mensagem_enviada"`
	CreatedAt         *string     `json:"data_criacao,omitempty"`
	UpdatedAt         *string     `json:"data_atualizacao,omitempty"`
}

// TemplateKind identifies what a message template is used for.
type TemplateKind string

const (
	TemplateExpiry  TemplateKind = "vencimento"
	TemplateRenewal TemplateKind = "renovacao"
	TemplateCustom  TemplateKind = "personalizada"
)

// Template is a message body with {placeholders}.
type Template struct {
	ID          int64        `json:"id"`
	Name        string       `json:"nome"`
	ProductType ProductType  `json:"tipo_produto"`
	Kind        TemplateKind `json:"tipo_template"`
	Content     string       `json:"conteudo"`
	Variables   *string      `json:"variaveis_disponiveis"`
	Active      bool         `json:"ativo"`
	Default     bool         `json:"padrao"`
	CreatedAt   *string      `json:"data_criacao,omitempty"`
	UpdatedAt   *string      `json:"data_atualizacao,omitempty"`
}

// ConfigEntry is a typed key/value setting grouped by category.
type ConfigEntry struct {
	ID          int64   `json:"id,omitempty"`
	Key         string  `json:"chave"`
	Value       any     `json:"valor"`
	Description *string `json:"descricao"`
	Type        string  `json:"tipo"`
	Category    string  `json:"categoria"`
	CreatedAt   *string `json:"data_criacao,omitempty"`
	UpdatedAt   *string `json:"data_atualizacao,omitempty"`
}

// Renewal records one extension of a client's expiration date.
type Renewal struct {
	ID             int64   `json:"id"`
	ClientID       int64   `json:"cliente_id"`
	RenewedOn      string  `json:"data_renovacao"`
	PreviousExpiry string  `json:"data_vencimento_anterior"`
	NewExpiry      string  `json:"data_vencimento_nova"`
	DaysRenewed    int     `json:"dias_renovados"`
	AmountPaid     float64 `json:"valor_pago"`
	Notes          *string `json:"observacoes"`
	CreatedAt      *string `json:"data_criacao,omitempty"`
	ClientName     string  `json:"cliente_nome,omitempty"`
	ClientProduct  string  `json:"cliente_tipo_produto,omitempty"`
	ClientPlan     string  `json:"cliente_plano,omitempty"`
}

// MessageStatus is the delivery state of an outbound message.
type MessageStatus string

const (
	MessageSent    MessageStatus = "enviada"
	MessageFailed  MessageStatus = "falha"
	MessagePending MessageStatus = "pendente"
)

// MessageLog is the audit record of an outbound message.
type MessageLog struct {
	ID            int64         `json:"id"`
	ClientID      int64         `json:"cliente_id"`
	Phone         string        `json:"telefone_destino"`
	Message       string        `json:"mensagem"`
	Status        MessageStatus `json:"status"`
	Kind          string        `json:"tipo_notificacao"`
	ScheduledAt   *string       `json:"data_agendamento"`
	SentAt        *string       `json:"data_envio"`
	ErrorDetails  *string       `json:"erro_detalhes"`
	Attempts      int           `json:"tentativas"`
	CreatedAt     *string       `json:"data_criacao,omitempty"`
	ClientName    string        `json:"cliente_nome,omitempty"`
	ClientProduct string        `json:"cliente_tipo_produto,omitempty"`
}

// DashboardSummary aggregates client counts and revenue for one product type.
type DashboardSummary struct {
	ProductType     ProductType `json:"tipo_produto"`
	ActiveClients   int         `json:"clientes_ativos"`
	ExpiredClients  int         `json:"clientes_vencidos"`
	ExpiringClients int         `json:"clientes_vencendo"`
	TotalRevenue    float64     `json:"receita_total"`
	RenewalsInMonth int         `json:"renovacoes_mes"`
}

// NoticeKind says why a client is due a notice.
type NoticeKind string

const (
	NoticeAhead  NoticeKind = "antecedencia"
	NoticeDueDay NoticeKind = "vencimento"
)

// PendingNotice is a client that should be messaged today.
type PendingNotice struct {
	Client   Client     `json:"cliente"`
	Kind     NoticeKind `json:"tipo_aviso"`
	DaysLeft int        `json:"dias_restantes"`
	SendAt   string     `json:"horario_envio"`
}

// WhatsAppStatus describes the messaging channel connection.
type WhatsAppStatus struct {
	Running     bool `json:"executando"`
	Connected   bool `json:"conectado"`
	QRAvailable bool `json:"qr_disponivel"`
}

// Statistics is a free-form aggregate returned by the statistics endpoints.
type Statistics map[string]any
