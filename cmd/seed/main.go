// Seeds a local database with a demo service and chats for development.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/jackc/pgx/v4"

	"telegram-notify-relay/internal/config"
	"telegram-notify-relay/internal/domain/model"
	"telegram-notify-relay/internal/domain/ports/repository"
	pg "telegram-notify-relay/internal/infra/db/postgres"
)

func main() {
	ctx := context.Background()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 2)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	if err := pg.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("schema: %v", err)
	}

	services := pg.NewPostgresServiceRepo(pool)
	chats := pg.NewPostgresChatRepo(pool)
	tm := pg.NewTxManager(pool)

	chatA, err := model.NewChat("", 111, "Ops Alerts", "ops_alerts", model.ChatTypeGroup, "ops", "")
	if err != nil {
		log.Fatalf("chat: %v", err)
	}
	chatB, err := model.NewChat("", 222, "Dev Sandbox", "", model.ChatTypePrivate, "dev", "")
	if err != nil {
		log.Fatalf("chat: %v", err)
	}
	chatB.IsTester = true
	for _, c := range []*model.Chat{chatA, chatB} {
		if _, err := chats.Upsert(ctx, repository.NoTX, c); err != nil {
			log.Fatalf("seed chat %d: %v", c.ChatID, err)
		}
	}

	svc, err := model.NewService("", "demo-service", "Demo", "seeded demo service")
	if err != nil {
		log.Fatalf("service: %v", err)
	}
	if err := services.Create(ctx, repository.NoTX, svc); err != nil {
		log.Fatalf("seed service: %v", err)
	}

	// Re-read to pick up the IDs the upserts may have kept from earlier runs.
	a, err := chats.FindByChatID(ctx, repository.NoTX, chatA.ChatID)
	if err != nil {
		log.Fatalf("reload chat: %v", err)
	}
	b, err := chats.FindByChatID(ctx, repository.NoTX, chatB.ChatID)
	if err != nil {
		log.Fatalf("reload chat: %v", err)
	}
	err = tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		return services.UpdateAuthorizations(ctx, tx, svc.ID, []string{a.ID, b.ID})
	})
	if err != nil {
		log.Fatalf("grant chats: %v", err)
	}

	fmt.Printf("seeded service %q\nAPI key: %s\n", svc.Name, svc.APIKey)
}
