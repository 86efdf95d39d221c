// Command seed creates the category catalogue and, optionally, demo listings.
// Categories that already exist are left untouched, so it is safe to rerun.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"github.com/urulico/urulico-api/config"
	"github.com/urulico/urulico-api/logger"
	"github.com/urulico/urulico-api/models"
	"github.com/urulico/urulico-api/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var samples int

	flagSet := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	flagSet.IntVar(&samples, "samples", 0, "also create this many demo listings")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		fmt.Fprintf(os.Stderr, "Usage: seed [flags]\n\n%s", flagSet.FlagUsages())
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)
	logger.Set(log)
	defer log.Sync()

	if err := config.ConnectDatabase(cfg.DatabaseURL); err != nil {
		return err
	}
	db := config.GetDB()
	if err := models.AutoMigrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	ctx := context.Background()
	inserted, err := services.SeedCategories(ctx, db, services.DefaultCategories)
	if err != nil {
		return err
	}
	log.Info("categories seeded",
		logger.Int64("inserted", inserted),
		logger.Int("total", len(services.DefaultCategories)),
	)

	if samples <= 0 {
		return nil
	}

	// Demo listings are indexed only when a hosted index is configured
	var index services.SearchIndex = services.NewMockSearchIndex()
	if cfg.HasAlgolia() {
		index = services.NewAlgoliaIndex(cfg.AlgoliaAppID, cfg.AlgoliaAPIKey)
	}
	submission := services.NewListingSubmission(db, services.NewSearchSync(db, index, nil, log), log)

	created, err := createSamples(ctx, submission, sampleListings(samples))
	if err != nil {
		return err
	}
	log.Info("demo listings created", logger.Int("created", created))
	return nil
}

// listingCreator is the part of the submission pipeline the seeder needs
type listingCreator interface {
	Create(ctx context.Context, in services.CreateServiceInput) (*services.CreateServiceResult, error)
}

func createSamples(ctx context.Context, creator listingCreator, inputs []services.CreateServiceInput) (int, error) {
	created := 0
	for _, in := range inputs {
		if _, err := creator.Create(ctx, in); err != nil {
			return created, fmt.Errorf("create demo listing %q: %w", in.Titulo, err)
		}
		created++
	}
	return created, nil
}

type sampleTemplate struct {
	categoria string
	titulo    string
	proveedor string
	precio    float64
	moneda    string
}

var sampleTemplates = []sampleTemplate{
	{"instalacion-mantenimiento", "Electricista matriculado a domicilio", "Electro Sur", 1200, "UYU"},
	{"construccion-carpinteria", "Carpintería y muebles a medida", "Maderas del Este", 350, "USD"},
	{"servicios-domesticos", "Limpieza profunda de hogares", "Casa Limpia", 900, "UYU"},
	{"salud-belleza", "Manicura y pedicura a domicilio", "Uñas Bellas", 700, "UYU"},
	{"artes-entretenimiento", "Animación de fiestas infantiles", "Globo Loco", 4500, "UYU"},
	{"tecnologia-informatica", "Reparación de computadoras y notebooks", "TecnoFix", 1500, "UYU"},
	{"servicios-profesionales", "Asesoramiento contable para pymes", "Estudio Rivera", 120, "USD"},
	{"educacion-tutorias", "Clases particulares de matemática", "Profe Laura", 600, "UYU"},
	{"transporte-mudanzas", "Fletes y mudanzas en todo el país", "Mudanzas Ya", 3000, "UYU"},
	{"gastronomia-catering", "Catering para eventos y cumpleaños", "Sabores Criollos", 25, "USD"},
}

// sampleListings cycles through the templates, spreading listings over the
// departments
func sampleListings(n int) []services.CreateServiceInput {
	inputs := make([]services.CreateServiceInput, n)
	for i := range inputs {
		tpl := sampleTemplates[i%len(sampleTemplates)]
		departamento := models.Departamentos[i%len(models.Departamentos)]
		ciudad := models.Ciudades[departamento][0]
		moneda := tpl.moneda
		telefono := fmt.Sprintf("09%07d", 1000000+i)

		titulo := tpl.titulo
		if i >= len(sampleTemplates) {
			titulo = fmt.Sprintf("%s (%d)", tpl.titulo, i/len(sampleTemplates)+1)
		}

		inputs[i] = services.CreateServiceInput{
			Categoria:         tpl.categoria,
			Titulo:            titulo,
			Precio:            services.NewAmount(tpl.precio),
			Moneda:            &moneda,
			Departamento:      &departamento,
			Ciudad:            &ciudad,
			Proveedor:         tpl.proveedor,
			TelefonoPrincipal: &telefono,
			Whatsapp:          i%2 == 0,
			Email:             fmt.Sprintf("demo%d@urulico.uy", i%len(sampleTemplates)),
			ContactoPor:       models.ContactAll,
		}
	}
	return inputs
}
