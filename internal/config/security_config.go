package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Access token required
)

// Route names shared by the router and EndpointSecurityConfig.
const (
	RouteHealth = "Health"

	RouteRegister = "Register"
	RouteLogin    = "Login"
	RouteRefresh  = "RefreshToken"

	RouteGetMe          = "GetMe"
	RouteUpdateMe       = "UpdateMe"
	RouteGetUser        = "GetUser"
	RouteTopUp          = "TopUp"
	RouteMyTransactions = "ListMyTransactions"

	RouteListCategories = "ListCategories"
	RouteGetCategory    = "GetCategory"
	RouteListItems      = "ListItems"
	RouteGetItem        = "GetItem"
	RouteCreateItem     = "CreateItem"
	RouteUpdateItem     = "UpdateItem"
	RouteDeleteItem     = "DeleteItem"

	RouteListCart      = "ListCart"
	RouteAddToCart     = "AddToCart"
	RouteUpdateCart    = "UpdateCartItem"
	RouteRemoveCart    = "RemoveFromCart"
	RouteCheckoutCart  = "CheckoutCart"
	RouteCreateRental  = "CreateRental"
	RouteListRentals   = "ListRentals"
	RouteGetRental     = "GetRental"
	RouteUserRentals   = "ListUserRentals"
	RouteApproveRental = "ApproveRental"
	RouteRejectRental  = "RejectRental"
	RouteCompleteRent  = "CompleteRental"
)

// EndpointSecurityConfig maps route names to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	RouteHealth: SecurityPublic,

	// Auth - Public
	RouteRegister: SecurityPublic,
	RouteLogin:    SecurityPublic,
	RouteRefresh:  SecurityPublic,

	// Users - Access Protected
	RouteGetMe:          SecurityAccess,
	RouteUpdateMe:       SecurityAccess,
	RouteGetUser:        SecurityAccess,
	RouteTopUp:          SecurityAccess,
	RouteMyTransactions: SecurityAccess,

	// Catalog - browsing is public, writes need an owner
	RouteListCategories: SecurityPublic,
	RouteGetCategory:    SecurityPublic,
	RouteListItems:      SecurityPublic,
	RouteGetItem:        SecurityPublic,
	RouteCreateItem:     SecurityAccess,
	RouteUpdateItem:     SecurityAccess,
	RouteDeleteItem:     SecurityAccess,

	// Cart - Access Protected
	RouteListCart:     SecurityAccess,
	RouteAddToCart:    SecurityAccess,
	RouteUpdateCart:   SecurityAccess,
	RouteRemoveCart:   SecurityAccess,
	RouteCheckoutCart: SecurityAccess,

	// Rentals - Access Protected
	RouteCreateRental:  SecurityAccess,
	RouteListRentals:   SecurityAccess,
	RouteGetRental:     SecurityAccess,
	RouteUserRentals:   SecurityAccess,
	RouteApproveRental: SecurityAccess,
	RouteRejectRental:  SecurityAccess,
	RouteCompleteRent:  SecurityAccess,
}

// GetSecurityLevel returns the security level for a given route name
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAccess
}
