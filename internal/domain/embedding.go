package domain

import "net/url"

// Request parameter names that drive the embedded-app handshake.
const (
	ParamShop     = "shop"
	ParamTopLevel = "top_level"
	ParamEmbedded = "embedded"
	ParamReturnTo = "return_to"
	ParamHost     = "host"
)

// EmbeddingState describes how the current request relates to the admin iframe.
type EmbeddingState struct {
	IsEmbeddedApp    bool
	HasTopLevelParam bool
	HasEmbeddedParam bool
}

// DetectEmbedding derives the embedding state. Only the presence of the
// top_level and embedded keys matters; "top_level=" and "top_level=false"
// both count as present.
func DetectEmbedding(isEmbeddedApp bool, params url.Values) EmbeddingState {
	return EmbeddingState{
		IsEmbeddedApp:    isEmbeddedApp,
		HasTopLevelParam: params.Has(ParamTopLevel),
		HasEmbeddedParam: params.Has(ParamEmbedded),
	}
}

// IsTopLevel reports whether the browser is outside the iframe, or whether
// that does not matter because the app is not embedded.
func (e EmbeddingState) IsTopLevel() bool {
	return !e.IsEmbeddedApp || e.HasTopLevelParam
}
