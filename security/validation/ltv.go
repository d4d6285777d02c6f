package validation

import (
	"context"
	"github.com/solvane/docia/ir/semantic"
)

// LTVManager manages Long Term Validation (LTV) information in the PDF.
// It handles the Document Security Store (DSS) dictionary.
type LTVManager interface {
	// AddValidationInfo adds validation information (certs, OCSP, CRLs) to the DSS.
	AddValidationInfo(ctx context.Context, doc *semantic.Document, vri *ValidationRelatedInfo) error
}

// ValidationRelatedInfo contains the validation data to be added.
type ValidationRelatedInfo struct {
	Certs [][]byte // DER encoded certificates
	OCSPs [][]byte // DER encoded OCSP responses
	CRLs  [][]byte // DER encoded CRLs
}

type LTVManagerImpl struct{}

func NewLTVManager() *LTVManagerImpl {
	return &LTVManagerImpl{}
}

// AddValidationInfo returns nil without reading vri or modifying doc: this
// implementation writes no DSS dictionary, certificates, OCSP responses,
// CRLs or VRI entries.
func (m *LTVManagerImpl) AddValidationInfo(ctx context.Context, doc *semantic.Document, vri *ValidationRelatedInfo) error {
	return nil
}
