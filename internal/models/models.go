package models

import "time"

const (
	RoleAdmin        = "ADMIN"
	RoleCollaborator = "COLLABORATOR"
)

type User struct {
	ID           string     `db:"id"`
	Email        string     `db:"email"`
	Username     string     `db:"username"`
	PasswordHash string     `db:"password_hash"`
	FullName     *string    `db:"full_name"`
	Role         string     `db:"role"`
	IsActive     bool       `db:"is_active"`
	CreatedAt    time.Time  `db:"created_at"`
	LastLoginAt  *time.Time `db:"last_login_at"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type Tutorial struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Description *string   `db:"description"`
	Category    *string   `db:"category"`
	Tags        []byte    `db:"tags"`
	CreatedBy   *string   `db:"created_by"`
	IsPublished bool      `db:"is_published"`
	Version     int       `db:"version"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Step.Seq is assigned by the database sequence, so equal step_order values
// still replay in insertion order.
type Step struct {
	ID                 string    `db:"id"`
	TutorialID         string    `db:"tutorial_id"`
	Order              int       `db:"step_order"`
	Seq                int64     `db:"seq"`
	Title              string    `db:"title"`
	ScreenshotURL      *string   `db:"screenshot_url"`
	VideoURL           *string   `db:"video_url"`
	Content            *string   `db:"content"`
	ValidationRequired bool      `db:"validation_required"`
	ValidationType     *string   `db:"validation_type"`
	ValidationTarget   *string   `db:"validation_target"`
	CreatedAt          time.Time `db:"created_at"`
}

type Annotation struct {
	ID          string    `db:"id"`
	StepID      string    `db:"step_id"`
	Type        string    `db:"type"`
	Coordinates []byte    `db:"coordinates"`
	Text        *string   `db:"text"`
	Animation   string    `db:"animation"`
	Delay       int       `db:"delay_ms"`
	Style       []byte    `db:"style"`
	CreatedAt   time.Time `db:"created_at"`
}

type Progress struct {
	ID             string     `db:"id"`
	UserID         string     `db:"user_id"`
	TutorialID     string     `db:"tutorial_id"`
	CurrentStep    int        `db:"current_step"`
	CompletedSteps []byte     `db:"completed_steps"`
	TimePerStep    []byte     `db:"time_per_step"`
	Attempts       int        `db:"attempts"`
	Completed      bool       `db:"completed"`
	Score          float64    `db:"score"`
	StartedAt      time.Time  `db:"started_at"`
	CompletedAt    *time.Time `db:"completed_at"`
	LastAccessed   time.Time  `db:"last_accessed"`
}

type TutorialAccess struct {
	UserID     string    `db:"user_id"`
	TutorialID string    `db:"tutorial_id"`
	GrantedAt  time.Time `db:"granted_at"`
}

type MediaAsset struct {
	ID          string    `db:"id"`
	OwnerUserID *string   `db:"owner_user_id"`
	Bucket      string    `db:"bucket"`
	StorageKey  string    `db:"storage_key"`
	Filename    *string   `db:"filename"`
	Type        string    `db:"type"`
	ContentType string    `db:"content_type"`
	SizeBytes   int64     `db:"size_bytes"`
	Sha256      *string   `db:"sha256"`
	CreatedAt   time.Time `db:"created_at"`
}

type ServerMetricSample struct {
	ID                string    `db:"id"`
	CapturedAt        time.Time `db:"captured_at"`
	HeapUsedBytes     int64     `db:"heap_used_bytes"`
	HeapMaxBytes      int64     `db:"heap_max_bytes"`
	SystemMemoryTotal int64     `db:"system_memory_total_bytes"`
	SystemMemoryUsed  int64     `db:"system_memory_used_bytes"`
	DiskTotalBytes    int64     `db:"disk_total_bytes"`
	DiskUsedBytes     int64     `db:"disk_used_bytes"`
	ProcessCpuLoad    float64   `db:"process_cpu_load"`
	SystemCpuLoad     float64   `db:"system_cpu_load"`
}
