package model

// Kind identifies one of the editable content collections. The set is closed:
// every Entity implementation belongs to exactly one Kind.
type Kind string

const (
	KindProject       Kind = "project"
	KindSkill         Kind = "skill"
	KindCertification Kind = "certification"
	KindExperience    Kind = "experience"
	KindEducation     Kind = "education"
)

// Label returns the human readable name used in API messages.
func (k Kind) Label() string {
	switch k {
	case KindProject:
		return "Project"
	case KindSkill:
		return "Skill"
	case KindCertification:
		return "Certification"
	case KindExperience:
		return "Experience entry"
	case KindEducation:
		return "Education entry"
	default:
		return string(k)
	}
}

// NaturalKey reports whether records of this kind are identified by one of
// their own fields rather than a server-assigned id.
func (k Kind) NaturalKey() bool {
	return k == KindSkill || k == KindCertification
}

// Entity is implemented by every record type stored in a content collection.
// The unexported method keeps the set of implementations inside this package.
type Entity interface {
	Kind() Kind
	// Key returns the identifying value: the surrogate id for projects,
	// experience and education, the natural key for skills and certifications.
	Key() string
	entity()
}

// ProjectStatus is the lifecycle state of a portfolio project.
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "Active"
	ProjectCompleted ProjectStatus = "Completed"
	ProjectPlanned   ProjectStatus = "Planned"
)

// ProjectMetrics are the headline numbers shown on a project card.
type ProjectMetrics struct {
	SecurityScore        int `json:"security_score" yaml:"security_score" validate:"min=0,max=100"`
	VulnerabilitiesFixed int `json:"vulnerabilities_fixed" yaml:"vulnerabilities_fixed" validate:"min=0"`
	Performance          int `json:"performance" yaml:"performance" validate:"min=0,max=100"`
}

// Project is a showcased piece of work. Its ID is assigned on creation and
// stays stable across updates.
type Project struct {
	ID           string         `json:"id" yaml:"id,omitempty"`
	Title        string         `json:"title" yaml:"title" validate:"required,max=200"`
	Description  string         `json:"description" yaml:"description" validate:"required,max=5000"`
	Category     string         `json:"category" yaml:"category" validate:"required,max=100"`
	Duration     string         `json:"duration" yaml:"duration" validate:"required,max=100"`
	Technologies []string       `json:"technologies" yaml:"technologies" validate:"max=50,dive,required,max=100"`
	Status       ProjectStatus  `json:"status" yaml:"status" validate:"required,oneof=Active Completed Planned"`
	Highlights   []string       `json:"highlights" yaml:"highlights" validate:"max=50,dive,required,max=500"`
	Metrics      ProjectMetrics `json:"metrics" yaml:"metrics"`
}

func (Project) Kind() Kind    { return KindProject }
func (p Project) Key() string { return p.ID }
func (Project) entity()       {}
func (p *Project) Normalize() {
	if p.Technologies == nil {
		p.Technologies = []string{}
	}
	if p.Highlights == nil {
		p.Highlights = []string{}
	}
}

// Skill is a proficiency bar keyed by its category.
type Skill struct {
	Category string `json:"category" yaml:"category" validate:"required,max=100"`
	Level    int    `json:"level" yaml:"level" validate:"min=0,max=100"`
}

func (Skill) Kind() Kind    { return KindSkill }
func (s Skill) Key() string { return s.Category }
func (Skill) entity()       {}

// Certification is a credential keyed by its name. Color is a display hint
// for the frontend and is not interpreted.
type Certification struct {
	Name     string `json:"name" yaml:"name" validate:"required,max=200"`
	Issuer   string `json:"issuer" yaml:"issuer" validate:"required,max=200"`
	Year     int    `json:"year" yaml:"year" validate:"min=1900,max=2100"`
	Verified bool   `json:"verified" yaml:"verified"`
	Color    string `json:"color" yaml:"color" validate:"max=32"`
}

func (Certification) Kind() Kind    { return KindCertification }
func (c Certification) Key() string { return c.Name }
func (Certification) entity()       {}

// ExperienceEntry is a position held, shown on the resume timeline.
type ExperienceEntry struct {
	ID           string   `json:"id" yaml:"id,omitempty"`
	Title        string   `json:"title" yaml:"title" validate:"required,max=200"`
	Company      string   `json:"company" yaml:"company" validate:"required,max=200"`
	Duration     string   `json:"duration" yaml:"duration" validate:"required,max=100"`
	Location     string   `json:"location,omitempty" yaml:"location,omitempty" validate:"max=200"`
	Description  string   `json:"description" yaml:"description" validate:"required,max=5000"`
	Achievements []string `json:"achievements" yaml:"achievements" validate:"max=50,dive,required,max=500"`
}

func (ExperienceEntry) Kind() Kind    { return KindExperience }
func (e ExperienceEntry) Key() string { return e.ID }
func (ExperienceEntry) entity()       {}
func (e *ExperienceEntry) Normalize() {
	if e.Achievements == nil {
		e.Achievements = []string{}
	}
}

// EducationEntry is a degree. Expected is meaningful while Current is true,
// Completed once it is false; both are stored as submitted.
type EducationEntry struct {
	ID          string `json:"id" yaml:"id,omitempty"`
	Degree      string `json:"degree" yaml:"degree" validate:"required,max=200"`
	Institution string `json:"institution" yaml:"institution" validate:"required,max=200"`
	Location    string `json:"location,omitempty" yaml:"location,omitempty" validate:"max=200"`
	Current     bool   `json:"current" yaml:"current"`
	Expected    string `json:"expected,omitempty" yaml:"expected,omitempty" validate:"max=100"`
	Completed   string `json:"completed,omitempty" yaml:"completed,omitempty" validate:"max=100"`
}

func (EducationEntry) Kind() Kind    { return KindEducation }
func (e EducationEntry) Key() string { return e.ID }
func (EducationEntry) entity()       {}

// PersonalInfo is the singleton profile record. It is replaced wholesale.
type PersonalInfo struct {
	Name     string `json:"name" yaml:"name" validate:"required,max=200"`
	Title    string `json:"title" yaml:"title" validate:"max=200"`
	Subtitle string `json:"subtitle" yaml:"subtitle" validate:"max=300"`
	Location string `json:"location" yaml:"location" validate:"max=200"`
	Email    string `json:"email" yaml:"email" validate:"required,email,max=320"`
	Phone    string `json:"phone" yaml:"phone" validate:"max=50"`
	Bio      string `json:"bio" yaml:"bio" validate:"max=5000"`
	GitHub   string `json:"github" yaml:"github" validate:"omitempty,url,max=300"`
	LinkedIn string `json:"linkedin" yaml:"linkedin" validate:"omitempty,url,max=300"`
}

// ContentSnapshot is every content collection read at a single point in time.
type ContentSnapshot struct {
	PersonalInfo   *PersonalInfo     `json:"personal_info" yaml:"personal_info,omitempty"`
	Projects       []Project         `json:"projects" yaml:"projects"`
	Skills         []Skill           `json:"skills" yaml:"skills"`
	Certifications []Certification   `json:"certifications" yaml:"certifications"`
	Experience     []ExperienceEntry `json:"experience" yaml:"experience"`
	Education      []EducationEntry  `json:"education" yaml:"education"`
	Settings       Settings          `json:"settings" yaml:"settings,omitempty"`
}
