package usecase

import (
	"crypto/rand"
	"fmt"
	"io"
	"time"

	"karaoke-subscription/internal/domain/model"
)

// generateTempPassword creates a secure, random, human-typeable one-time
// password. Format: XXXX-XXXX-XXXX.
func generateTempPassword() (string, error) {
	// A character set that avoids ambiguous characters like O/0, I/1, l.
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	const length = 12

	buffer := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, buffer); err != nil {
		return "", err
	}
	for i := 0; i < length; i++ {
		buffer[i] = chars[int(buffer[i])%len(chars)]
	}
	return string(buffer[0:4]) + "-" + string(buffer[4:8]) + "-" + string(buffer[8:12]), nil
}

// confirmationMail renders the confirmation email. The stored credential
// digest never appears here; only a freshly generated one-time password
// when first-activation credential issuance applies.
func confirmationMail(acct *model.Account, plan model.Plan, outcome Outcome, oneTime string) (subject, body string) {
	expires := "-"
	if acct.ExpiresAt != nil {
		expires = acct.ExpiresAt.Format(time.DateOnly)
	}

	if outcome == OutcomeActivated {
		subject = "🎤 Pagamento confirmado — sua conta está ativa!"
		body = fmt.Sprintf(
			"<h2>Bem-vindo, %s!</h2>"+
				"<p>Seu pagamento foi confirmado e o plano <b>%s</b> está ativo até <b>%s</b>.</p>",
			acct.Name, plan.Name, expires)
		if oneTime != "" {
			body += fmt.Sprintf(
				"<p>Sua senha temporária de acesso: <b>%s</b><br>"+
					"Troque-a no primeiro login.</p>", oneTime)
		}
		return subject, body
	}

	subject = "🎤 Assinatura renovada"
	body = fmt.Sprintf(
		"<h2>Obrigado, %s!</h2>"+
			"<p>Sua assinatura do plano <b>%s</b> foi renovada e vale até <b>%s</b>.</p>",
		acct.Name, plan.Name, expires)
	return subject, body
}
