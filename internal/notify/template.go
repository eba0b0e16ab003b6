package notify

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/somandosabores/paynotify/internal/domain"
)

const logoURL = "https://raw.githubusercontent.com/somandosabores/assets/main/logo.png"

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<body style="margin: 0; padding: 0; background-color: #f4f4f4; font-family: Arial, sans-serif;">
  <table align="center" border="0" cellpadding="0" cellspacing="0" width="600" style="background-color: #ffffff; border-radius: 8px;">
    <tr>
      <td align="center" style="padding: 40px 0 30px 0;">
        <img src="{{.LogoURL}}" alt="Logo" width="150" style="display: block;" />
      </td>
    </tr>
    <tr>
      <td style="padding: 0 30px 20px 30px;">
        <h2 style="color: #333333; margin: 0;">Olá, {{.Name}}!</h2>
        <p style="color: #555555; font-size: 16px;">
          Recebemos a confirmação do pagamento da sua reserva. Está tudo certo!
        </p>
      </td>
    </tr>
    <tr>
      <td style="padding: 0 30px 30px 30px;">
        <table border="0" cellpadding="0" cellspacing="0" width="100%" style="border: 1px dashed #D3C5E5; background-color: #fdfcff; border-radius: 8px; padding: 20px;">
          <tr>
            <td style="color: #333333; font-size: 16px;">
              <p style="margin: 0 0 10px 0;"><strong>Descrição:</strong><br>{{.Description}}</p>
              <p style="margin: 0 0 10px 0;"><strong>Valor:</strong><br>R$ {{.Amount}}</p>
              <p style="margin: 0 0 10px 0;"><strong>Forma de pagamento:</strong><br>{{.Method}}</p>
              <p style="margin: 0;"><strong>Data da confirmação:</strong><br>{{.Date}}</p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
    <tr>
      <td bgcolor="#f4f4f4" style="padding: 30px; text-align: center;">
        <p style="margin: 0; color: #888888; font-size: 14px;">Atenciosamente,<br>Equipe {{.Team}}</p>
      </td>
    </tr>
  </table>
</body>
</html>`))

var refundTmpl = template.Must(template.New("refund").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<body style="margin: 0; padding: 0; background-color: #f4f4f4; font-family: Arial, sans-serif;">
  <table align="center" border="0" cellpadding="0" cellspacing="0" width="600" style="background-color: #ffffff; border-radius: 8px;">
    <tr>
      <td align="center" style="padding: 40px 0 30px 0;">
        <img src="{{.LogoURL}}" alt="Logo" width="150" style="display: block;" />
      </td>
    </tr>
    <tr>
      <td style="padding: 0 30px 20px 30px;">
        <h2 style="color: #333333; margin: 0;">Olá, {{.Name}}!</h2>
        <p style="color: #555555; font-size: 16px;">
          Confirmamos que o reembolso referente à sua reserva foi processado com sucesso.
        </p>
      </td>
    </tr>
    <tr>
      <td style="padding: 0 30px 30px 30px;">
        <table border="0" cellpadding="0" cellspacing="0" width="100%" style="border: 1px dashed #D3C5E5; background-color: #fdfcff; border-radius: 8px; padding: 20px;">
          <tr>
            <td style="color: #333333; font-size: 16px;">
              <p style="margin: 0 0 10px 0;"><strong>Descrição da cobrança original:</strong><br>{{.Description}}</p>
              <p style="margin: 0 0 10px 0;"><strong>Valor reembolsado:</strong><br>R$ {{.Amount}}</p>
              <p style="margin: 0;"><strong>Data do processamento:</strong><br>{{.Date}}</p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
    <tr>
      <td style="padding: 0 30px 40px 30px; text-align: center;">
        <p style="color: #555555; font-size: 16px;">
          O valor será creditado de acordo com os prazos da sua operadora de cartão ou banco.
        </p>
      </td>
    </tr>
    <tr>
      <td bgcolor="#f4f4f4" style="padding: 30px; text-align: center;">
        <p style="margin: 0; color: #888888; font-size: 14px;">Atenciosamente,<br>Equipe {{.Team}}</p>
      </td>
    </tr>
  </table>
</body>
</html>`))

type mailData struct {
	LogoURL     string
	Name        string
	Description string
	Amount      string
	Method      string
	Date        string
	Team        string
}

func renderConfirmation(c *domain.Customer, b *domain.Booking, evt *domain.PaymentEvent) (string, error) {
	data := mailData{
		LogoURL:     logoURL,
		Name:        c.Name,
		Description: evt.Description,
		Amount:      evt.Amount.StringFixed(2),
		Method:      evt.BillingMethod,
		Date:        formatDate(evt.ConfirmedAt),
		Team:        "Somando Sabores",
	}

	var sb strings.Builder
	if err := confirmationTmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("renderConfirmation: %w", err)
	}
	return sb.String(), nil
}

func renderRefund(c *domain.Customer, evt *domain.PaymentEvent) (string, error) {
	data := mailData{
		LogoURL:     logoURL,
		Name:        c.Name,
		Description: evt.Description,
		Amount:      evt.Amount.StringFixed(2),
		Date:        formatDate(time.Now()),
		Team:        "Somando Sabores",
	}

	var sb strings.Builder
	if err := refundTmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("renderRefund: %w", err)
	}
	return sb.String(), nil
}

var ptMonths = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

func formatDate(t time.Time) string {
	return fmt.Sprintf("%d de %s de %d", t.Day(), ptMonths[t.Month()-1], t.Year())
}
