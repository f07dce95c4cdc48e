package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/nidhogg/campus-assistant/internal/enrollment"
	"github.com/nidhogg/campus-assistant/internal/identity"
	"go.uber.org/zap"
)

type recoverArgs struct {
	Phone string `json:"phone,omitempty" jsonschema:"número de celular registrado del estudiante, por ejemplo +593987654321"`
}

// registerITSupport adds the IT support tools. token is captured here and
// nowhere else.
func (tk *toolkit) registerITSupport(r *ToolRegistry, token string) {
	RegisterText(r, "reset_email_password",
		"Explica cómo restablecer la contraseña del correo institucional (@ube.edu.ec).",
		emailResetText)

	RegisterFunc(r, "institutional_email",
		"Consulta el correo institucional del estudiante autenticado y explica su uso.",
		func(ctx context.Context, _ NoArgs) (string, error) {
			if token == "" || tk.deps.Accounts == nil {
				return authRequiredText, nil
			}
			user, err := tk.deps.Accounts.Profile(ctx, token)
			if err != nil {
				if errors.Is(err, identity.ErrUnauthorized) {
					return authRequiredText, nil
				}
				tk.logger.Warn("institutional email lookup failed", zap.Error(err))
				return "No pudimos verificar tu correo institucional en este momento. Si el problema persiste contacta a la Dirección de Tecnologías de la Información (DTI).", nil
			}
			name := user.Name
			if name == "" {
				name = user.Username
			}
			return fmt.Sprintf("Tu correo institucional es: **%s**\n\nHola %s. %s", user.Email, name, emailUsesText), nil
		})

	RegisterFunc(r, "recover_sga_credentials",
		"Recupera las credenciales del SGA enviándolas por WhatsApp al celular registrado del estudiante. Si no se conoce el celular, pídelo.",
		func(ctx context.Context, args recoverArgs) (string, error) {
			if token == "" || tk.deps.Accounts == nil {
				return authRequiredText, nil
			}
			if args.Phone == "" {
				return "Necesito tu número de celular registrado (formato +593XXXXXXXXX) para continuar con la recuperación.", nil
			}
			phone, err := enrollment.Normalize(enrollment.FieldPhone, args.Phone)
			if err != nil {
				return fmt.Sprintf("El número %q no es válido: %s.", args.Phone, err), nil
			}
			rec, err := tk.deps.Accounts.RecoverPassword(ctx, token, phone)
			if err != nil {
				if errors.Is(err, identity.ErrUnauthorized) {
					return authRequiredText, nil
				}
				return "", fmt.Errorf("recover credentials: %w", err)
			}
			switch {
			case rec.Error != "":
				return "No se pudo completar la recuperación de credenciales: " + rec.Error, nil
			case rec.WhatsAppResponse != "":
				return fmt.Sprintf("Tu número registrado es **%s**.\n\n%s\n\nSi no recibes el mensaje en unos minutos, comunícate con Soporte Técnico.", phone, rec.WhatsAppResponse), nil
			default:
				return rec.Message, nil
			}
		})
}
