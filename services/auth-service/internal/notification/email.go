package notification

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/config"
	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/model"
)

var ErrNoPendingToken = errors.New("user has no pending token to send")

// Sender delivers a single HTML email. *mailer.Mailer satisfies it.
type Sender interface {
	SendHTML(to []string, subject, htmlBody, textBody string) error
}

// EmailNotifier sends account emails linking back to the web app.
type EmailNotifier struct {
	sender         Sender
	authServiceCfg *config.AuthServiceConfig
	logger         *zerolog.Logger
}

func NewEmailNotifier(sender Sender, authServiceCfg *config.AuthServiceConfig, logger *zerolog.Logger) *EmailNotifier {
	return &EmailNotifier{
		sender:         sender,
		authServiceCfg: authServiceCfg,
		logger:         logger,
	}
}

func (n *EmailNotifier) SendVerifyEmail(ctx context.Context, user *model.User) error {
	if user.EmailVerificationToken == "" {
		return ErrNoPendingToken
	}

	link := tokenLink(n.authServiceCfg.AppVerifyEmailURL, user.EmailVerificationToken)
	htmlBody := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>Thanks for signing up. Please confirm your email address by clicking the link below:</p>

		<p><a href="%s">%s</a></p>

		<p>If you did not create an account, you can safely ignore this email.</p>

		<p>Thank you,</p>
		<p>The Identity Team</p>
	`, html.EscapeString(user.FullName), link, link)
	textBody := fmt.Sprintf("Hi %s,\n\nConfirm your email address: %s\n", user.FullName, link)

	return n.send(ctx, user, "Verify your email address", htmlBody, textBody)
}

func (n *EmailNotifier) SendPasswordReset(ctx context.Context, user *model.User) error {
	if user.PasswordResetToken == "" {
		return ErrNoPendingToken
	}

	link := tokenLink(n.authServiceCfg.AppPasswordResetURL, user.PasswordResetToken)
	htmlBody := fmt.Sprintf(`
		<p>Hi,</p>
		<p>We received a request to reset the password for your account.</p>
		<p>If you made this request, please click the link below to create a new password:</p>

		<p><a href="%s">%s</a></p>

		<p>This link will expire in %s.</p>
		<p>If you did not request a password reset, you can safely ignore this email.</p>

		<p>Thank you,</p>
		<p>The Identity Team</p>
	`, link, link, n.authServiceCfg.PasswordResetTokenExpiresIn)
	textBody := fmt.Sprintf("Reset your password: %s\n\nThis link will expire in %s.\n",
		link, n.authServiceCfg.PasswordResetTokenExpiresIn)

	return n.send(ctx, user, "Password Reset Request", htmlBody, textBody)
}

func (n *EmailNotifier) send(ctx context.Context, user *model.User, subject, htmlBody, textBody string) error {
	if user.EmailAddress == "" {
		return fmt.Errorf("user %s has no email address", user.ID.Hex())
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := n.sender.SendHTML([]string{user.EmailAddress}, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("send %q email: %w", subject, err)
	}

	n.logger.Debug().Str("user_id", user.ID.Hex()).Str("subject", subject).Msg("sent email")
	return nil
}

func tokenLink(base, token string) string {
	return fmt.Sprintf("%s?token=%s", base, url.QueryEscape(token))
}
