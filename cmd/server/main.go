package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"tabula/internal/api"
	"tabula/internal/config"
	"tabula/internal/dsl"
	"tabula/internal/marshal"
	"tabula/internal/otel"
	"tabula/internal/persist"
	"tabula/internal/reference"
	"tabula/internal/registry"
	"tabula/internal/store"
)

func main() {
	cfg, err := config.Load(os.Args[0], os.Args[1:])
	if err != nil {
		log.Fatalf("Ошибка конфигурации: %v", err)
	}
	ctx := context.Background()

	// 1. Трассировка (пустой endpoint → noop)
	shutdown, err := otel.Setup(ctx, cfg.ServiceName, cfg.OTelEndpoint)
	if err != nil {
		log.Fatalf("Ошибка настройки трассировки: %v", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	// 2. DSL-сущности и enum-справочники
	entities, err := dsl.LoadAllEntities(cfg.DSLDir)
	if err != nil {
		log.Fatalf("Ошибка загрузки DSL: %v", err)
	}
	fmt.Printf("Загружено сущностей: %d\n", len(entities))

	enumCatalog, err := reference.LoadEnumCatalog(cfg.EnumsDir)
	if err != nil {
		log.Fatalf("Ошибка загрузки enum-справочников: %v", err)
	}
	fmt.Printf("Загружено enum-справочников: %d\n", len(enumCatalog))

	provider, err := dsl.NewProvider(entities, enumCatalog)
	if err != nil {
		log.Fatalf("Ошибка описания сущностей: %v", err)
	}

	// 3. Реестр строится один раз на процесс
	reg, err := registry.Init(provider, provider.IDs()...)
	if err != nil {
		log.Fatalf("Ошибка регистрации сущностей: %v", err)
	}

	// 4. Хранилище и схема
	st, err := store.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		log.Fatalf("Ошибка подключения к БД: %v", err)
	}
	defer st.Close()

	facade := persist.New(st, marshal.New(reg, provider))
	if cfg.Recreate {
		err = facade.Recreate(ctx)
	} else {
		err = facade.CreateSchema(ctx)
	}
	if err != nil {
		log.Fatalf("Ошибка создания схемы: %v", err)
	}

	// 5. REST API
	srv := api.NewServer(facade, enumCatalog)
	srv.AllowRecreate = cfg.AllowRecreate
	fmt.Printf("Стартуем сервер Tabula на :%s (%s)...\n", cfg.Port, st.Dialect().Name())
	if err := api.RunServer(":"+cfg.Port, srv); err != nil {
		log.Printf("server stopped: %v", err)
	}
}
