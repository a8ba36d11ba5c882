package classification

import (
	cryptoDomain "github.com/allisson/fleetvault/internal/crypto/domain"
)

// DefaultVersion is the revision of the compiled-in fleet table.
const DefaultVersion = "fleet-2026.1"

// defaultTable covers driver, vehicle telemetry and payment records. Top-level
// selectors apply when a record is passed on its own; prefixed ones when it is
// embedded in a larger document.
var defaultTable = map[cryptoDomain.Classification][]string{
	cryptoDomain.Internal: {
		"email",
		"phone",
		"homeAddress",
		"emergencyContact",
		"driver.email",
		"driver.phone",
		"driver.homeAddress",
		"driver.emergencyContact",
		"vehicle.gpsTrack",
		"trip.startLocation",
		"trip.endLocation",
	},
	cryptoDomain.Confidential: {
		"ssn",
		"licenseNumber",
		"dateOfBirth",
		"medical",
		"driver.ssn",
		"driver.licenseNumber",
		"driver.dateOfBirth",
		"driver.medical.*",
		"incident.injuryReport",
	},
	cryptoDomain.Restricted: {
		"bankAccount",
		"routingNumber",
		"driver.backgroundCheck",
		"driver.drugTest",
		"payment.cardNumber",
		"payment.cvv",
		"payment.bankAccount",
		"payment.routingNumber",
	},
}

// Default returns the compiled-in fleet registry.
func Default() *Registry {
	r, err := NewRegistry(DefaultVersion, defaultTable)
	if err != nil {
		panic(err)
	}
	return r
}
