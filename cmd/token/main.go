// token emite un JWT para la API de control del puente, firmado con JWT_SECRET.
//
// Uso: go run ./cmd/token <operador> [admin|operator|viewer]
// El rol por defecto es operator. La duración y el emisor salen de JWT_EXPIRATION_MINUTES y JWT_ISSUER.
package main

import (
	"fmt"
	"os"

	"github.com/jhoicas/scanner-bridge/pkg/config"
	"github.com/jhoicas/scanner-bridge/pkg/jwt"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Uso: token <operador> [admin|operator|viewer]")
		os.Exit(2)
	}
	operator := os.Args[1]
	role := jwt.RoleOperator
	if len(os.Args) > 2 {
		role = os.Args[2]
	}
	switch role {
	case jwt.RoleAdmin, jwt.RoleOperator, jwt.RoleViewer:
	default:
		fmt.Fprintf(os.Stderr, "Rol desconocido: %s\n", role)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	tok, err := jwt.Generate(cfg.JWT.Secret, operator, role, cfg.JWT.Issuer, cfg.JWT.Expiration)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Generar token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
