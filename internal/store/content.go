package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/folio-cms/folio/internal/model"
)

// ---------------------------------------------------------------------------
// Row types
// ---------------------------------------------------------------------------

type projectRow struct {
	ID                   string     `db:"id"`
	Title                string     `db:"title"`
	Description          string     `db:"description"`
	Category             string     `db:"category"`
	Duration             string     `db:"duration"`
	Technologies         stringList `db:"technologies"`
	Status               string     `db:"status"`
	Highlights           stringList `db:"highlights"`
	SecurityScore        int        `db:"security_score"`
	VulnerabilitiesFixed int        `db:"vulnerabilities_fixed"`
	Performance          int        `db:"performance"`
	rowMeta
}

func projectRowFromModel(p model.Project, meta rowMeta) projectRow {
	return projectRow{
		ID:                   p.ID,
		Title:                p.Title,
		Description:          p.Description,
		Category:             p.Category,
		Duration:             p.Duration,
		Technologies:         stringList(p.Technologies),
		Status:               string(p.Status),
		Highlights:           stringList(p.Highlights),
		SecurityScore:        p.Metrics.SecurityScore,
		VulnerabilitiesFixed: p.Metrics.VulnerabilitiesFixed,
		Performance:          p.Metrics.Performance,
		rowMeta:              meta,
	}
}

func (r projectRow) toModel() model.Project {
	p := model.Project{
		ID:           r.ID,
		Title:        r.Title,
		Description:  r.Description,
		Category:     r.Category,
		Duration:     r.Duration,
		Technologies: []string(r.Technologies),
		Status:       model.ProjectStatus(r.Status),
		Highlights:   []string(r.Highlights),
		Metrics: model.ProjectMetrics{
			SecurityScore:        r.SecurityScore,
			VulnerabilitiesFixed: r.VulnerabilitiesFixed,
			Performance:          r.Performance,
		},
	}
	p.Normalize()
	return p
}

type skillRow struct {
	Category string `db:"category"`
	Level    int    `db:"level"`
	rowMeta
}

type certificationRow struct {
	Name     string `db:"name"`
	Issuer   string `db:"issuer"`
	Year     int    `db:"year"`
	Verified bool   `db:"verified"`
	Color    string `db:"color"`
	rowMeta
}

type experienceRow struct {
	ID           string     `db:"id"`
	Title        string     `db:"title"`
	Company      string     `db:"company"`
	Duration     string     `db:"duration"`
	Location     string     `db:"location"`
	Description  string     `db:"description"`
	Achievements stringList `db:"achievements"`
	rowMeta
}

type educationRow struct {
	ID          string `db:"id"`
	Degree      string `db:"degree"`
	Institution string `db:"institution"`
	Location    string `db:"location"`
	Current     bool   `db:"is_current"`
	Expected    string `db:"expected"`
	Completed   string `db:"completed"`
	rowMeta
}

type personalInfoRow struct {
	Name      string    `db:"name"`
	Title     string    `db:"title"`
	Subtitle  string    `db:"subtitle"`
	Location  string    `db:"location"`
	Email     string    `db:"email"`
	Phone     string    `db:"phone"`
	Bio       string    `db:"bio"`
	GitHub    string    `db:"github"`
	LinkedIn  string    `db:"linkedin"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ---------------------------------------------------------------------------
// Collections
// ---------------------------------------------------------------------------

// Projects returns the project collection.
func (s *Store) Projects() *Table[model.Project] {
	return newTable(s, "projects", "id",
		[]string{"id", "title", "description", "category", "duration", "technologies",
			"status", "highlights", "security_score", "vulnerabilities_fixed", "performance"},
		projectRowFromModel,
		projectRow.toModel,
		func(p model.Project, id string) model.Project { p.ID = id; return p },
	)
}

// Skills returns the skill collection, keyed by category.
func (s *Store) Skills() *Table[model.Skill] {
	return newTable(s, "skills", "category",
		[]string{"category", "level"},
		func(v model.Skill, meta rowMeta) skillRow {
			return skillRow{Category: v.Category, Level: v.Level, rowMeta: meta}
		},
		func(r skillRow) model.Skill {
			return model.Skill{Category: r.Category, Level: r.Level}
		},
		nil,
	)
}

// Certifications returns the certification collection, keyed by name.
func (s *Store) Certifications() *Table[model.Certification] {
	return newTable(s, "certifications", "name",
		[]string{"name", "issuer", "year", "verified", "color"},
		func(v model.Certification, meta rowMeta) certificationRow {
			return certificationRow{
				Name: v.Name, Issuer: v.Issuer, Year: v.Year,
				Verified: v.Verified, Color: v.Color, rowMeta: meta,
			}
		},
		func(r certificationRow) model.Certification {
			return model.Certification{
				Name: r.Name, Issuer: r.Issuer, Year: r.Year,
				Verified: r.Verified, Color: r.Color,
			}
		},
		nil,
	)
}

// Experience returns the experience collection.
func (s *Store) Experience() *Table[model.ExperienceEntry] {
	return newTable(s, "experience", "id",
		[]string{"id", "title", "company", "duration", "location", "description", "achievements"},
		func(v model.ExperienceEntry, meta rowMeta) experienceRow {
			return experienceRow{
				ID: v.ID, Title: v.Title, Company: v.Company, Duration: v.Duration,
				Location: v.Location, Description: v.Description,
				Achievements: stringList(v.Achievements), rowMeta: meta,
			}
		},
		func(r experienceRow) model.ExperienceEntry {
			e := model.ExperienceEntry{
				ID: r.ID, Title: r.Title, Company: r.Company, Duration: r.Duration,
				Location: r.Location, Description: r.Description,
				Achievements: []string(r.Achievements),
			}
			e.Normalize()
			return e
		},
		func(e model.ExperienceEntry, id string) model.ExperienceEntry { e.ID = id; return e },
	)
}

// Education returns the education collection.
func (s *Store) Education() *Table[model.EducationEntry] {
	return newTable(s, "education", "id",
		[]string{"id", "degree", "institution", "location", "is_current", "expected", "completed"},
		func(v model.EducationEntry, meta rowMeta) educationRow {
			return educationRow{
				ID: v.ID, Degree: v.Degree, Institution: v.Institution, Location: v.Location,
				Current: v.Current, Expected: v.Expected, Completed: v.Completed, rowMeta: meta,
			}
		},
		func(r educationRow) model.EducationEntry {
			return model.EducationEntry{
				ID: r.ID, Degree: r.Degree, Institution: r.Institution, Location: r.Location,
				Current: r.Current, Expected: r.Expected, Completed: r.Completed,
			}
		},
		func(e model.EducationEntry, id string) model.EducationEntry { e.ID = id; return e },
	)
}

// ---------------------------------------------------------------------------
// Personal info
// ---------------------------------------------------------------------------

const personalInfoID = 1

// GetPersonalInfo returns the profile record, or ErrNotFound before one has
// been saved.
func (s *Store) GetPersonalInfo(ctx context.Context) (*model.PersonalInfo, error) {
	return getPersonalInfo(ctx, s.db)
}

func getPersonalInfo(ctx context.Context, q sqlx.QueryerContext) (*model.PersonalInfo, error) {
	var row personalInfoRow
	const query = `SELECT name, title, subtitle, location, email, phone, bio, github, linkedin, updated_at
		FROM personal_info WHERE id = 1`
	if err := sqlx.GetContext(ctx, q, &row, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get personal info: %w", err)
	}
	return &model.PersonalInfo{
		Name: row.Name, Title: row.Title, Subtitle: row.Subtitle, Location: row.Location,
		Email: row.Email, Phone: row.Phone, Bio: row.Bio, GitHub: row.GitHub, LinkedIn: row.LinkedIn,
	}, nil
}

// PutPersonalInfo replaces the profile record wholesale.
func (s *Store) PutPersonalInfo(ctx context.Context, info *model.PersonalInfo) error {
	return s.inTx(ctx, nil, func(tx *sqlx.Tx) error {
		return putPersonalInfo(ctx, tx, info)
	})
}

func putPersonalInfo(ctx context.Context, tx *sqlx.Tx, info *model.PersonalInfo) error {
	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM personal_info WHERE id = ?"), personalInfoID); err != nil {
		return fmt.Errorf("clear personal info: %w", err)
	}
	const q = `INSERT INTO personal_info
		(id, name, title, subtitle, location, email, phone, bio, github, linkedin, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, tx.Rebind(q), personalInfoID,
		info.Name, info.Title, info.Subtitle, info.Location, info.Email,
		info.Phone, info.Bio, info.GitHub, info.LinkedIn, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert personal info: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Aggregate reads and bulk writes
// ---------------------------------------------------------------------------

// Snapshot reads every content collection in a single read-only
// transaction. PersonalInfo is nil when it has never been saved; Settings
// holds only stored values, without defaults.
func (s *Store) Snapshot(ctx context.Context) (*model.ContentSnapshot, error) {
	snap := &model.ContentSnapshot{}
	err := s.inTx(ctx, s.readOnly(), func(tx *sqlx.Tx) error {
		info, err := getPersonalInfo(ctx, tx)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return err
		default:
			snap.PersonalInfo = info
		}

		if snap.Projects, err = s.Projects().list(ctx, tx); err != nil {
			return err
		}
		if snap.Skills, err = s.Skills().list(ctx, tx); err != nil {
			return err
		}
		if snap.Certifications, err = s.Certifications().list(ctx, tx); err != nil {
			return err
		}
		if snap.Experience, err = s.Experience().list(ctx, tx); err != nil {
			return err
		}
		if snap.Education, err = s.Education().list(ctx, tx); err != nil {
			return err
		}
		snap.Settings, err = getSettings(ctx, tx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("content snapshot: %w", err)
	}
	return snap, nil
}

// Import replaces every content collection with the contents of snap in one
// transaction. A nil PersonalInfo or Settings leaves the stored value alone.
func (s *Store) Import(ctx context.Context, snap *model.ContentSnapshot) error {
	return s.inTx(ctx, nil, func(tx *sqlx.Tx) error {
		if snap.PersonalInfo != nil {
			if err := putPersonalInfo(ctx, tx, snap.PersonalInfo); err != nil {
				return err
			}
		}
		if err := s.Projects().replaceAll(ctx, tx, snap.Projects); err != nil {
			return err
		}
		if err := s.Skills().replaceAll(ctx, tx, snap.Skills); err != nil {
			return err
		}
		if err := s.Certifications().replaceAll(ctx, tx, snap.Certifications); err != nil {
			return err
		}
		if err := s.Experience().replaceAll(ctx, tx, snap.Experience); err != nil {
			return err
		}
		if err := s.Education().replaceAll(ctx, tx, snap.Education); err != nil {
			return err
		}
		if snap.Settings != nil {
			return replaceSettings(ctx, tx, snap.Settings)
		}
		return nil
	})
}

// ContentEmpty reports whether no profile and no collection records have
// been stored yet.
func (s *Store) ContentEmpty(ctx context.Context) (bool, error) {
	var total int
	if _, err := getPersonalInfo(ctx, s.db); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	counters := []func(context.Context, sqlx.QueryerContext) (int, error){
		s.Projects().count, s.Skills().count, s.Certifications().count,
		s.Experience().count, s.Education().count,
	}
	for _, count := range counters {
		n, err := count(ctx, s.db)
		if err != nil {
			return false, err
		}
		total += n
	}
	return total == 0, nil
}
