package llm

import (
	"github.com/joseph-ayodele/debitsheet-import/constants"
)

// Router chooses a provider per document format. Document reads the file bytes
// (PDF); Text reads the extracted text. Either may be nil.
type Router struct {
	Document ModelClient
	Text     ModelClient
}

// Route returns the client and the method it implies. ok is false when no
// provider is configured for the format.
func (r *Router) Route(format constants.DocumentFormat) (client ModelClient, method constants.ExtractionMethod, ok bool) {
	if r == nil {
		return nil, constants.MethodNone, false
	}
	if format == constants.PDF && r.Document != nil {
		return r.Document, constants.MethodModelDocument, true
	}
	if r.Text != nil {
		return r.Text, constants.MethodModelText, true
	}
	if r.Document != nil {
		return r.Document, constants.MethodModelText, true
	}
	return nil, constants.MethodNone, false
}
