package notice

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"renewdesk/internal/model"
)

func TestRender(t *testing.T) {
	c := model.Client{FullName: "Maria Silva", Plan: "Premium", PlanValue: 35}
	content := "Olá {nome}, seu plano {plano} ({valor}) vence em {dias} dias. {outro}"

	assert.Equal(t,
		"Olá Maria Silva, seu plano Premium (R$ 35.00) vence em 3 dias. {outro}",
		Render(content, c, 3))
	assert.Equal(t, "venceu há 2 dias", Render("venceu há {dias} dias", c, -2))
}

func TestTemplateKind(t *testing.T) {
	assert.Equal(t, model.TemplateExpiry, templateKind(model.NoticeAhead))
	assert.Equal(t, model.TemplateExpiry, templateKind(model.NoticeDueDay))
	assert.Equal(t, model.TemplateCustom, templateKind("outro"))
}
