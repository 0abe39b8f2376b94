package application

import (
	"net/url"

	"archie-shopify-login/internal/domain"
)

// State is a step of the login handshake
type State string

const (
	StateStart                     State = "start"
	StateAwaitingShopInput         State = "awaiting_shop_input"
	StateValidatingShop            State = "validating_shop"
	StateRedirectingTopLevel       State = "redirecting_top_level"
	StateBeginningExternalAuth     State = "beginning_external_auth"
	StateRenderingEmbeddedRedirect State = "rendering_embedded_redirect"
	StateInvalidShopError          State = "invalid_shop_error"
	StateDone                      State = "done"
)

// Outcome tells the HTTP layer how to answer
type Outcome string

const (
	// OutcomeRenderForm renders the shop entry form
	OutcomeRenderForm Outcome = "render_form"
	// OutcomeRedirect is a plain HTTP redirect to Location
	OutcomeRedirect Outcome = "redirect"
	// OutcomeFullPageRedirect breaks out of the admin iframe and loads Location at the top level
	OutcomeFullPageRedirect Outcome = "full_page_redirect"
	// OutcomeRenderTopLevelInteraction renders the interaction page that
	// sends the user to Location at the top level once clicked
	OutcomeRenderTopLevelInteraction Outcome = "render_top_level_interaction"
)

// LoginRequest is everything the handshake reads from an incoming request
type LoginRequest struct {
	Params url.Values

	// StoredReturnTo is the session's return_to value when the request arrived
	StoredReturnTo string

	// Referer is the raw Referer header, used to recover a shop on logout
	Referer string
}

// Decision is the terminal result of one handshake invocation together
// with the effects the HTTP layer must apply.
type Decision struct {
	State   State
	Outcome Outcome

	// Path lists the states visited to reach State, State included
	Path []State

	Location       string
	AllowOtherHost bool

	Shop domain.ShopDomain

	// Cookie is set only when an external authorization begins
	Cookie *domain.CorrelationCookie
	Flash  *domain.Flash

	// ReturnTo, when non-empty, is written to the session's return_to key
	ReturnTo string
	// ConsumeReturnTo removes the stored return_to after it was used as the return address
	ConsumeReturnTo bool
	// ClearSession drops every session key
	ClearSession bool

	// Attempt describes a begun handshake for the audit log
	Attempt *domain.AuthAttempt
}
