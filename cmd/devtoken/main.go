// Command devtoken emite un JWT del panel para pruebas locales.
//
//	go run ./cmd/devtoken -store <uuid> -user <uuid> -role owner
//
// Usa JWT_SECRET, JWT_ISSUER y JWT_EXPIRATION_MINUTES de la configuración.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jhoicas/vitrina-stock/internal/domain/entity"
	"github.com/jhoicas/vitrina-stock/pkg/config"
	"github.com/jhoicas/vitrina-stock/pkg/jwt"
	"github.com/jhoicas/vitrina-stock/pkg/logger"
)

func main() {
	storeID := flag.String("store", "", "ID de la tienda (store_id)")
	userID := flag.String("user", "", "ID del usuario (user_id)")
	role := flag.String("role", entity.RoleOwner, "rol: owner | staff")
	flag.Parse()

	log := logger.New(logger.Config{Env: "development", Level: "info"})

	if *storeID == "" || *userID == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *role != entity.RoleOwner && *role != entity.RoleStaff {
		log.Fatal().Str("role", *role).Msg("rol no soportado")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("cargar configuración")
	}

	token, err := jwt.Generate(cfg.JWT.Secret, *userID, *storeID, *role, cfg.JWT.Issuer, cfg.JWT.Expiration)
	if err != nil {
		log.Fatal().Err(err).Msg("generar token")
	}
	fmt.Println(token)
}
