// Команда schema печатает DDL для сущностей из DSL, не подключаясь к БД.
//
//	schema -dsl dsl -enums reference/enums -dialect postgres
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"tabula/internal/ddl"
	"tabula/internal/dsl"
	"tabula/internal/registry"
)

func main() {
	dslDir := flag.String("dsl", "dsl", "Path to DSL directory")
	enumsDir := flag.String("enums", "reference/enums", "Path to enums directory")
	dialectName := flag.String("dialect", "sqlite", "SQL dialect (sqlite/postgres)")
	drop := flag.Bool("drop", false, "Print DROP statements before CREATE")
	flag.Parse()

	dialect, err := ddl.ByName(*dialectName)
	if err != nil {
		log.Fatal(err)
	}
	provider, err := dsl.Load(*dslDir, *enumsDir)
	if err != nil {
		log.Fatalf("load DSL: %v", err)
	}
	reg, err := registry.Build(provider, provider.IDs()...)
	if err != nil {
		log.Fatalf("build registry: %v", err)
	}

	script, err := ddl.Create(reg, dialect)
	if err != nil {
		log.Fatalf("generate schema: %v", err)
	}
	if *drop {
		fmt.Fprintln(os.Stdout, ddl.Drop(reg, dialect).String())
	}
	fmt.Fprintln(os.Stdout, script.String())
}
