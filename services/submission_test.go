package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urulico/urulico-api/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func validInput() CreateServiceInput {
	return CreateServiceInput{
		Categoria:    "construccion-carpinteria",
		Titulo:       "Carpintería a medida en Montevideo",
		Precio:       NewAmount(1500),
		Moneda:       strPtr("UYU"),
		Departamento: strPtr("Montevideo"),
		Ciudad:       strPtr("Pocitos"),
		Proveedor:    "Maderas Sur",
		Email:        "contacto@maderas.uy",
	}
}

func newSubmission(t *testing.T) (*ListingSubmission, *MockSearchIndex, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	index := NewMockSearchIndex()
	log := nopLogger()
	return NewListingSubmission(db, NewSearchSync(db, index, nil, log), log), index, db
}

func countServices(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Service{}).Count(&n).Error)
	return n
}

func TestAmountUnmarshalJSON(t *testing.T) {
	tests := []struct {
		raw     string
		value   *float64
		invalid bool
	}{
		{`null`, nil, false},
		{`""`, nil, false},
		{`"  "`, nil, false},
		{`1500`, floatPtr(1500), false},
		{`12.5`, floatPtr(12.5), false},
		{`"2500"`, floatPtr(2500), false},
		{`" 99.9 "`, floatPtr(99.9), false},
		{`"mil"`, nil, true},
		{`true`, nil, true},
		{`"NaN"`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var in struct {
				Precio Amount `json:"precio"`
			}
			require.NoError(t, json.Unmarshal([]byte(`{"precio":`+tt.raw+`}`), &in))
			assert.Equal(t, tt.value, in.Precio.Value)
			assert.Equal(t, tt.invalid, in.Precio.invalid)
		})
	}
}

func TestCreateServiceInput_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CreateServiceInput)
		field   string
		message string
	}{
		{"valid", func(*CreateServiceInput) {}, "", ""},
		{"missing category", func(in *CreateServiceInput) { in.Categoria = "  " }, "categoria", "Por favor selecciona una categoría"},
		{"short title", func(in *CreateServiceInput) { in.Titulo = "Corto" }, "titulo", "El título debe tener al menos 10 caracteres"},
		{"long title", func(in *CreateServiceInput) { in.Titulo = fmt.Sprintf("%0101d", 0) }, "titulo", "El título no puede tener más de 100 caracteres"},
		{"short provider", func(in *CreateServiceInput) { in.Proveedor = "AB" }, "proveedor", "El nombre debe tener al menos 3 caracteres"},
		{"bad email", func(in *CreateServiceInput) { in.Email = "no-es-email" }, "email", "Por favor ingresa un email válido"},
		{"dollars", func(in *CreateServiceInput) { in.Moneda = strPtr("USD") }, "", ""},
		{"bad currency", func(in *CreateServiceInput) { in.Moneda = strPtr("EUR") }, "moneda", "La moneda debe ser UYU o USD"},
		{"negative price", func(in *CreateServiceInput) { in.Precio = NewAmount(-1) }, "precio", "El precio debe ser un número mayor o igual a 0"},
		{"unparseable price", func(in *CreateServiceInput) { in.Precio = Amount{invalid: true} }, "precio", "El precio debe ser un número mayor o igual a 0"},
		{"bad contact method", func(in *CreateServiceInput) { in.ContactoPor = "fax" }, "contactoPor", "Forma de contacto no válida"},
		{"bad image url", func(in *CreateServiceInput) { in.Imagenes = []string{"https://ok.example.com/a.jpg", "ftp://nope"} }, "imagenes", "Las imágenes deben ser URLs http(s) válidas"},
		{"unknown department", func(in *CreateServiceInput) { in.Departamento = strPtr("Atlántida"); in.Ciudad = nil }, "departamento", "Departamento no válido"},
		{"city without department", func(in *CreateServiceInput) { in.Departamento = nil }, "ciudad", "Selecciona un departamento antes de la ciudad"},
		{"city of another department", func(in *CreateServiceInput) { in.Ciudad = strPtr("Pando") }, "ciudad", "La ciudad no pertenece al departamento seleccionado"},
		{"blank optionals are fine", func(in *CreateServiceInput) {
			in.Moneda = strPtr(" ")
			in.Departamento = strPtr("")
			in.Ciudad = strPtr("")
			in.Precio = Amount{}
		}, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			in.Normalize()
			err := in.Validate()

			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			require.Len(t, verr.Fields, 1, verr.Error())
			assert.Equal(t, tt.field, verr.Fields[0].Field)
			assert.Equal(t, tt.message, verr.Fields[0].Message)
		})
	}
}

func TestCreateServiceInput_ValidateReportsEveryField(t *testing.T) {
	in := CreateServiceInput{Precio: NewAmount(-5)}
	in.Normalize()

	var verr *ValidationError
	require.True(t, errors.As(in.Validate(), &verr))

	fields := map[string]bool{}
	for _, f := range verr.Fields {
		fields[f.Field] = true
	}
	for _, name := range []string{"categoria", "titulo", "proveedor", "email", "precio"} {
		assert.True(t, fields[name], "missing %s", name)
	}
}

func TestListingSubmission_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("persists and indexes the listing", func(t *testing.T) {
		sub, index, db := newSubmission(t)

		in := validInput()
		in.Email = "  Contacto@Maderas.UY "
		res, err := sub.Create(ctx, in)
		require.NoError(t, err)

		assert.True(t, res.Indexed)
		assert.NoError(t, res.IndexErr)
		assert.NotEmpty(t, res.Service.ID)
		assert.Equal(t, "contacto@maderas.uy", res.Service.Email)
		require.NotNil(t, res.Service.Category)
		assert.Equal(t, "construccion-carpinteria", res.Service.Category.Slug)

		var stored models.Service
		require.NoError(t, db.First(&stored, "id = ?", res.Service.ID).Error)
		assert.Equal(t, 1500.0, *stored.Precio)
		assert.Equal(t, models.ContactEmail, stored.ContactoPor)

		docs := index.Documents(ServicesIndex)
		require.Len(t, docs, 1)
		assert.Equal(t, res.Service.ID, docs[0]["objectID"])
		assert.Equal(t, "Construcción y Carpintería", docs[0]["category"].(map[string]interface{})["name"])
	})

	t.Run("without a phone the contact method falls back to email", func(t *testing.T) {
		sub, _, _ := newSubmission(t)

		in := validInput()
		in.ContactoPor = models.ContactAll
		res, err := sub.Create(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, models.ContactEmail, res.Service.ContactoPor)

		in = validInput()
		in.ContactoPor = models.ContactAll
		in.TelefonoPrincipal = strPtr("099123456")
		res, err = sub.Create(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, models.ContactAll, res.Service.ContactoPor)
	})

	t.Run("unknown category persists nothing", func(t *testing.T) {
		sub, index, db := newSubmission(t)

		in := validInput()
		in.Categoria = "no-existe"
		res, err := sub.Create(ctx, in)

		assert.Nil(t, res)
		var nf *NotFoundError
		require.True(t, errors.As(err, &nf))
		assert.Equal(t, "category", nf.Resource)
		assert.Equal(t, "no-existe", nf.Key)

		assert.Equal(t, int64(0), countServices(t, db))
		var users int64
		require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
		assert.Equal(t, int64(0), users, "user upsert is rolled back")
		assert.Empty(t, index.Documents(ServicesIndex))
	})

	t.Run("invalid input persists nothing", func(t *testing.T) {
		sub, _, db := newSubmission(t)

		in := validInput()
		in.Titulo = "corto"
		_, err := sub.Create(ctx, in)

		var verr *ValidationError
		assert.True(t, errors.As(err, &verr))
		assert.Equal(t, int64(0), countServices(t, db))
	})

	t.Run("images are capped at ten in order", func(t *testing.T) {
		sub, _, db := newSubmission(t)

		in := validInput()
		for i := 0; i < 11; i++ {
			in.Imagenes = append(in.Imagenes, fmt.Sprintf("https://cdn.example.com/%02d.jpg", i))
		}
		res, err := sub.Create(ctx, in)
		require.NoError(t, err)

		var stored models.Service
		require.NoError(t, db.First(&stored, "id = ?", res.Service.ID).Error)
		require.Len(t, stored.Imagenes, models.MaxImages)
		assert.Equal(t, in.Imagenes[:10], stored.Imagenes)
		assert.Equal(t, "https://cdn.example.com/00.jpg", stored.Imagenes[0])
	})

	t.Run("same email reuses the user", func(t *testing.T) {
		sub, _, db := newSubmission(t)

		first, err := sub.Create(ctx, validInput())
		require.NoError(t, err)

		in := validInput()
		in.Email = "CONTACTO@maderas.uy"
		second, err := sub.Create(ctx, in)
		require.NoError(t, err)

		assert.Equal(t, first.Service.UserID, second.Service.UserID)
		var users int64
		require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
		assert.Equal(t, int64(1), users)
	})

	t.Run("index failure keeps the listing", func(t *testing.T) {
		sub, index, db := newSubmission(t)
		index.FailWith(errors.New("algolia down"))

		res, err := sub.Create(ctx, validInput())
		require.NoError(t, err)

		assert.False(t, res.Indexed)
		var ierr *IndexSyncError
		require.True(t, errors.As(res.IndexErr, &ierr))
		assert.Equal(t, ServicesIndex, ierr.Index)
		assert.Equal(t, int64(1), countServices(t, db))
	})

	t.Run("missing index keeps the listing", func(t *testing.T) {
		db := setupTestDB(t)
		log := nopLogger()
		sub := NewListingSubmission(db, NewSearchSync(db, nil, nil, log), log)

		res, err := sub.Create(ctx, validInput())
		require.NoError(t, err)

		assert.False(t, res.Indexed)
		assert.ErrorIs(t, res.IndexErr, ErrSearchIndexNotConfigured)
		assert.Equal(t, int64(1), countServices(t, db))
	})

	t.Run("index write survives a cancelled request", func(t *testing.T) {
		db := setupTestDB(t)
		log := nopLogger()
		reqCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		index := &cancellingIndex{MockSearchIndex: NewMockSearchIndex(), cancel: cancel}
		sub := NewListingSubmission(db, NewSearchSync(db, index, nil, log), log)

		res, err := sub.Create(reqCtx, validInput())
		require.NoError(t, err)

		assert.True(t, res.Indexed, "index write must not inherit the request cancellation")
		assert.Error(t, reqCtx.Err())
		assert.Len(t, index.Documents(ServicesIndex), 1)
	})

	t.Run("failure to open the transaction is a store error", func(t *testing.T) {
		sub, index, db := newSubmission(t)
		sqlDB, err := db.DB()
		require.NoError(t, err)
		require.NoError(t, sqlDB.Close())

		res, err := sub.Create(ctx, validInput())

		assert.Nil(t, res)
		var serr *StoreError
		require.True(t, errors.As(err, &serr), "got %v", err)
		assert.Equal(t, "create service transaction", serr.Op)
		assert.Equal(t, CodeDatabase, serr.Code())
		assert.Empty(t, index.Documents(ServicesIndex))
	})
}

// cancellingIndex cancels the request context right before the write, the
// way a client disconnecting after the insert would
type cancellingIndex struct {
	*MockSearchIndex
	cancel context.CancelFunc
}

func (c *cancellingIndex) SaveObject(ctx context.Context, indexName string, object interface{}) error {
	c.cancel()
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.MockSearchIndex.SaveObject(ctx, indexName, object)
}

func TestListingSubmission_ConcurrentFirstSubmissionsShareUser(t *testing.T) {
	// A file database with several connections so the submissions really
	// run side by side; immediate transactions wait on each other instead
	// of failing on lock upgrade.
	dsn := filepath.Join(t.TempDir(), "race.db") + "?_busy_timeout=5000&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(8)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	_, err = SeedCategories(context.Background(), db, DefaultCategories)
	require.NoError(t, err)

	log := nopLogger()
	sub := NewListingSubmission(db, NewSearchSync(db, NewMockSearchIndex(), nil, log), log)

	const submitters = 6
	start := make(chan struct{})
	results := make([]*CreateServiceResult, submitters)
	errs := make([]error, submitters)

	var wg sync.WaitGroup
	for i := 0; i < submitters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := validInput()
			in.Titulo = fmt.Sprintf("Carpintería a medida pedido %d", i)
			in.Email = "nuevo@maderas.uy"
			<-start
			results[i], errs[i] = sub.Create(context.Background(), in)
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 0; i < submitters; i++ {
		require.NoError(t, errs[i], "submission %d", i)
		assert.Equal(t, results[0].Service.UserID, results[i].Service.UserID)
	}

	var users int64
	require.NoError(t, db.Model(&models.User{}).Where("email = ?", "nuevo@maderas.uy").Count(&users).Error)
	assert.Equal(t, int64(1), users)
	assert.Equal(t, int64(submitters), countServices(t, db))
}
