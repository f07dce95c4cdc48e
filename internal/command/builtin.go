package command

import (
	"context"
	"fmt"
	"strings"
)

// Resetter forgets a conversation. It returns the sessions still active.
type Resetter interface {
	Cleanup(ctx context.Context, userID, conversationID string) (bool, int, error)
}

// StatusProvider reports the assistant's state for /estado.
type StatusProvider interface {
	Status(tenant string) Status
}

// Status is what /estado shows.
type Status struct {
	ActiveSessions int
	MaxSessions    int
	Tenant         string
	Agents         []string
	Adapters       []string
}

// RegisterBuiltins registers /ayuda, /reiniciar and /estado.
func RegisterBuiltins(reg *Registry, reset Resetter, status StatusProvider) {
	reg.Register(helpCommand(reg))
	reg.Register(resetCommand(reset))
	reg.Register(statusCommand(status))
}

func helpCommand(reg *Registry) *Command {
	return &Command{
		Name:        "ayuda",
		Description: "Muestra los comandos disponibles",
		Usage:       "/ayuda",
		Handler: func(_ context.Context, _ string, _ *CommandContext) (*CommandResult, error) {
			var b strings.Builder
			b.WriteString("Comandos disponibles:\n")
			for _, c := range reg.List() {
				fmt.Fprintf(&b, "  /%s: %s\n", c.Name, c.Description)
			}
			b.WriteString("Para todo lo demás, escríbeme tu consulta.")
			return &CommandResult{Content: b.String()}, nil
		},
	}
}

func resetCommand(reset Resetter) *Command {
	return &Command{
		Name:        "reiniciar",
		Description: "Olvida esta conversación y empieza de nuevo",
		Usage:       "/reiniciar",
		Handler: func(ctx context.Context, _ string, cc *CommandContext) (*CommandResult, error) {
			cleared, active, err := reset.Cleanup(ctx, cc.UserID, cc.ConversationID)
			if err != nil {
				return nil, fmt.Errorf("reset conversation: %w", err)
			}
			if !cleared {
				return &CommandResult{Content: "No había nada que olvidar. Puedes empezar cuando quieras."}, nil
			}
			return &CommandResult{
				Content: "Listo, empecemos de nuevo. ¿En qué te puedo ayudar?",
				Data:    map[string]int{"active_sessions": active},
			}, nil
		},
	}
}

func statusCommand(status StatusProvider) *Command {
	return &Command{
		Name:        "estado",
		Description: "Muestra el estado del asistente",
		Usage:       "/estado",
		Handler: func(_ context.Context, _ string, cc *CommandContext) (*CommandResult, error) {
			s := status.Status(cc.Tenant)
			var b strings.Builder
			fmt.Fprintf(&b, "Conversaciones activas: %d de %d\n", s.ActiveSessions, s.MaxSessions)
			if s.Tenant != "" {
				fmt.Fprintf(&b, "Institución: %s\n", s.Tenant)
			}
			if len(s.Agents) > 0 {
				fmt.Fprintf(&b, "Agentes: %s\n", strings.Join(s.Agents, ", "))
			}
			if len(s.Adapters) > 0 {
				fmt.Fprintf(&b, "Canales: %s\n", strings.Join(s.Adapters, ", "))
			}
			return &CommandResult{Content: strings.TrimRight(b.String(), "\n")}, nil
		},
	}
}
