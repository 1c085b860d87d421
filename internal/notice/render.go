package notice

import (
	"fmt"
	"strconv"
	"strings"

	"renewdesk/internal/model"
)

// Render fills the {nome}, {plano}, {valor} and {dias} placeholders of content.
// days is written as an absolute value.
func Render(content string, c model.Client, days int) string {
	if days < 0 {
		days = -days
	}
	return strings.NewReplacer(
		"{nome}", c.FullName,
		"{plano}", c.Plan,
		"{valor}", fmt.Sprintf("R$ %.2f", c.PlanValue),
		"{dias}", strconv.Itoa(days),
	).Replace(content)
}

// templateKind picks the default template kind for a notice.
func templateKind(k model.NoticeKind) model.TemplateKind {
	switch k {
	case model.NoticeAhead, model.NoticeDueDay:
		return model.TemplateExpiry
	}
	return model.TemplateCustom
}
