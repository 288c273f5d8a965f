package entity

// ResolutionStatus resultado de resolver un código de barras.
type ResolutionStatus int

const (
	// Existe en el inventario.
	ResolutionFound ResolutionStatus = iota
	// No existe y no se intentó el catálogo.
	ResolutionNotFoundInInventory
	// Ni inventario ni catálogo.
	ResolutionNotFoundAnywhere
	// Encontrado en el catálogo y dado de alta.
	ResolutionRegistered
	// Catálogo OK pero falló el alta o el código.
	ResolutionRegistrationFailed
)

func (s ResolutionStatus) String() string {
	switch s {
	case ResolutionFound:
		return "found"
	case ResolutionNotFoundInInventory:
		return "not_found_in_inventory"
	case ResolutionNotFoundAnywhere:
		return "not_found_anywhere"
	case ResolutionRegistered:
		return "registered"
	case ResolutionRegistrationFailed:
		return "registration_failed"
	default:
		return "unknown"
	}
}

// ResolutionOutcome lo que el resolver sabe de un código tras consultarlo.
// Product solo viene relleno con ResolutionFound; CreatedProductID con ResolutionRegistered
// (y con ResolutionRegistrationFailed si el producto llegó a crearse).
type ResolutionOutcome struct {
	Status           ResolutionStatus
	Product          *ProductRecord
	CatalogName      string
	CreatedProductID string
}

// Found indica si hay un registro utilizable.
func (o ResolutionOutcome) Found() bool {
	return o.Status == ResolutionFound && o.Product != nil
}
