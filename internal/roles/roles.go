package roles

// Role is a school-level role assigned to a user.
type Role string

// Canonical hierarchy, ascending by power.
const (
	RoleUser        Role = "user"
	RoleStaff       Role = "staff"
	RoleTeacher     Role = "teacher"
	RoleTeacherPlus Role = "teacher_plus"
	RoleDeputy      Role = "deputy"
	RoleDeputyPlus  Role = "deputy_plus"
	RoleDirector    Role = "director"
)

// Lateral aliases. Each resolves to exactly one canonical role.
const (
	RoleDeputyAXH        Role = "deputy_axh"
	RoleSysadmin         Role = "sysadmin"
	RoleFoodDispatcher   Role = "food_dispatcher"
	RolePsychologist     Role = "psychologist"
	RoleLibrarian        Role = "librarian"
	RoleEducationAdviser Role = "education_adviser"
)

// hierarchy lists canonical roles in ascending power order.
var hierarchy = []Role{
	RoleUser,
	RoleStaff,
	RoleTeacher,
	RoleTeacherPlus,
	RoleDeputy,
	RoleDeputyPlus,
	RoleDirector,
}

var aliases = map[Role]Role{
	RoleDeputyAXH:        RoleDeputy,
	RoleSysadmin:         RoleStaff,
	RoleFoodDispatcher:   RoleStaff,
	RolePsychologist:     RoleTeacher,
	RoleLibrarian:        RoleStaff,
	RoleEducationAdviser: RoleTeacherPlus,
}

var powers = func() map[Role]int {
	m := make(map[Role]int, len(hierarchy))
	for i, r := range hierarchy {
		m[r] = i + 1
	}
	return m
}()

// Canonicalize maps an alias to its base role. Canonical roles map to
// themselves. The second return is false for unrecognized input.
func Canonicalize(r Role) (Role, bool) {
	if _, ok := powers[r]; ok {
		return r, true
	}
	if base, ok := aliases[r]; ok {
		return base, true
	}
	return "", false
}

// PowerOf returns the rank of the canonical role in the hierarchy, starting
// at 1 for the lowest role. Empty or unrecognized roles have power 0.
func PowerOf(r Role) int {
	base, ok := Canonicalize(r)
	if !ok {
		return 0
	}
	return powers[base]
}

// FullAccessPower is the minimum power at which a user may review any task
// regardless of ownership.
var FullAccessPower = PowerOf(RoleDeputyPlus)

// All returns every recognized role, canonical roles first.
func All() []Role {
	out := make([]Role, 0, len(hierarchy)+len(aliases))
	out = append(out, hierarchy...)
	for a := range aliases {
		out = append(out, a)
	}
	return out
}

// Valid reports whether r is a recognized role (canonical or alias).
func Valid(r Role) bool {
	_, ok := Canonicalize(r)
	return ok
}
