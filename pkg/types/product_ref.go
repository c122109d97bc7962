package types

import "github.com/google/uuid"

// ProductRef is an explicit optional reference to a product presentation.
// The zero value means "no product"; every component checks HasProduct
// instead of testing ids against nil/zero ad hoc.
type ProductRef struct {
	ProductID      uuid.UUID
	PresentationID uuid.UUID
	valid          bool
}

// NewProductRef builds a valid reference. Both ids must be set.
func NewProductRef(productID, presentationID uuid.UUID) ProductRef {
	if productID == uuid.Nil || presentationID == uuid.Nil {
		return ProductRef{}
	}
	return ProductRef{ProductID: productID, PresentationID: presentationID, valid: true}
}

// HasProduct reports whether the reference points at a real presentation.
func (r ProductRef) HasProduct() bool {
	return r.valid
}
