package models

// ContactMethod is how a provider prefers to be reached
type ContactMethod string

const (
	ContactEmail          ContactMethod = "email"
	ContactCallOrWhatsapp ContactMethod = "llamada-whatsapp"
	ContactAll            ContactMethod = "todos"
)

// Valid reports whether m is one of the known contact methods
func (m ContactMethod) Valid() bool {
	switch m {
	case ContactEmail, ContactCallOrWhatsapp, ContactAll:
		return true
	}
	return false
}

// ResolveContactMethod applies the listing contact rule: without a primary
// phone the only possible contact is email, whatever was requested.
func ResolveContactMethod(requested ContactMethod, telefonoPrincipal *string) ContactMethod {
	if telefonoPrincipal == nil || *telefonoPrincipal == "" {
		return ContactEmail
	}
	if requested == "" {
		return ContactEmail
	}
	return requested
}
