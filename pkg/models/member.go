package models

type MemberProfile struct {
	Name  string `json:"name" yaml:"name"`
	Role  string `json:"role,omitempty" yaml:"role,omitempty"`
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
	Color string `json:"color,omitempty" yaml:"color,omitempty"`
}

// Qualifications is the reference document the registry is loaded from.
type Qualifications struct {
	Qualifications map[string][]string      `json:"qualifications" yaml:"qualifications"`
	TeamMembers    map[string]MemberProfile `json:"teamMembers" yaml:"teamMembers"`
}
