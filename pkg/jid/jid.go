package jid

import (
	"fmt"
	"strings"
)

// JID is a parsed stream address of the form local@domain/resource.
// The resource part is optional; local and domain are not.
type JID struct {
	Local    string
	Domain   string
	Resource string
}

// Parse parses an address into a JID. The address must carry a non-empty
// local part and domain; a resource suffix is accepted and preserved.
func Parse(address string) (JID, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return JID{}, fmt.Errorf("address is empty")
	}

	rest := address
	resource := ""
	if idx := strings.Index(rest, "/"); idx >= 0 {
		resource = rest[idx+1:]
		rest = rest[:idx]
		if resource == "" {
			return JID{}, fmt.Errorf("address %q has an empty resource", address)
		}
	}

	at := strings.Index(rest, "@")
	if at <= 0 || at == len(rest)-1 {
		return JID{}, fmt.Errorf("address %q is missing a local or domain part", address)
	}

	local := rest[:at]
	domain := rest[at+1:]
	if strings.Contains(domain, "@") {
		return JID{}, fmt.Errorf("address %q has more than one @", address)
	}
	if strings.ContainsAny(local, " \t") || strings.ContainsAny(domain, " \t") {
		return JID{}, fmt.Errorf("address %q contains whitespace", address)
	}

	return JID{
		Local:    local,
		Domain:   strings.ToLower(domain),
		Resource: resource,
	}, nil
}

// Bare returns the JID with the resource stripped. Two sessions address the
// same endpoint when their bare JIDs are equal.
func (j JID) Bare() JID {
	return JID{Local: j.Local, Domain: j.Domain}
}

// Equal reports whether two JIDs are identical, resource included.
func (j JID) Equal(other JID) bool {
	return j.Local == other.Local && j.Domain == other.Domain && j.Resource == other.Resource
}

// String renders the JID back to its address form.
func (j JID) String() string {
	var b strings.Builder
	if j.Local != "" {
		b.WriteString(j.Local)
		b.WriteString("@")
	}
	b.WriteString(j.Domain)
	if j.Resource != "" {
		b.WriteString("/")
		b.WriteString(j.Resource)
	}
	return b.String()
}
