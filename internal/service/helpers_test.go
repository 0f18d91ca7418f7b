package service

import (
	"io"
	"time"

	"tuition-ledger/config"
	"tuition-ledger/internal/adapter/storage/memory"
	"tuition-ledger/internal/core/domain"

	"github.com/rs/zerolog"
)

func newTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

var fixedNow = time.Date(2025, time.January, 10, 14, 30, 0, 0, time.UTC)

var legacyCredentialHeader = []string{"cedula", "clave", "nombre", "matricula"}

func testLedgerOptions() LedgerOptions {
	return LedgerOptions{
		Collection:           "Pagos",
		Methods:              config.DefaultMethods,
		Levels:               config.DefaultLevels,
		RequireEnrollmentRef: true,
		Timeout:              time.Second,
		IdempotencyTTL:       time.Hour,
	}
}

// seededStore has one registered representative and an empty payments
// collection with the standard header.
func seededStore() *memory.Store {
	store := memory.NewStore()
	store.Seed("Usuarios", legacyCredentialHeader,
		[]string{"V-12345678", "clave123", "María Pérez", "M-001"},
	)
	store.Seed("Pagos", domain.PaymentHeader)
	return store
}

func partialPayment() domain.Submission {
	return domain.Submission{
		RepresentativeID:   "V-12345678",
		PaymentDate:        "2025-01-10",
		Level:              "Primaria",
		Method:             "Transferencia",
		Mode:               "Abono",
		Reference:          "OP-991",
		Amount:             "50.00",
		OutstandingBalance: "150.00",
	}
}
