package database

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/drummonds/goslides/config"
	"github.com/oklog/ulid/v2"
)

// Attachment is a PDF stored in the media library
type Attachment struct {
	ID           int
	ULID         ulid.ULID // smaller (than hash) id that can be used in URLs
	Name         string
	Path         string // path to the PDF, relative to the media root
	Hash         string
	UploadTime   time.Time
	DocumentType string // file extension (.pdf)
	FullText     string // extracted text, may be empty
}

// Slide is a presentation post backed by a single PDF attachment
type Slide struct {
	ID         int
	ULID       ulid.ULID
	Title      string
	Attachment string // ULID of the selected PDF attachment, empty when none
	CreatedAt  time.Time
}

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// Repository defines database operations
type Repository interface {
	Close() error
	SaveAttachment(att *Attachment) error
	GetAttachment(ulidStr string) (*Attachment, error)
	GetAttachmentByHash(hash string) (*Attachment, error)
	GetAttachmentByPath(path string) (*Attachment, error)
	GetNewestAttachments(limit int) ([]Attachment, error)
	GetAllAttachments() ([]Attachment, error)
	SearchAttachments(searchTerm string) ([]Attachment, error)
	DeleteAttachment(ulidStr string) error
	// Page image metadata: an ordered list of media-root-relative PNG paths
	// per attachment. Either absent or complete, written once after a
	// successful rasterization.
	SavePageImages(attachmentULID string, paths []string) error
	GetPageImages(attachmentULID string) ([]string, error)
	HasPageImages(attachmentULID string) (bool, error)
	DeletePageImages(attachmentULID string) error
	GetAllPageImagePaths() ([]string, error)
	// Slide methods
	SaveSlide(slide *Slide) error
	GetSlide(ulidStr string) (*Slide, error)
	GetAllSlides() ([]Slide, error)
	UpdateSlideAttachment(slideULID string, attachmentULID string) error
	DeleteSlide(ulidStr string) error
	// Config persistence
	SaveConfig(config *config.ServerConfig) error
	GetConfig() (*config.ServerConfig, error)
}

// FetchConfigFromDB pulls the server config from the database
func FetchConfigFromDB(db Repository) (config.ServerConfig, error) {
	serverConfig, err := db.GetConfig()
	if err != nil {
		Logger.Error("Unable to fetch server config from db", "error", err)
		return config.ServerConfig{}, err
	}
	return *serverConfig, nil
}

// WriteConfigToDB writes the serverconfig to the database for later retrieval
func WriteConfigToDB(serverConfig config.ServerConfig, db Repository) {
	serverConfig.ID = 1 // config is always stored in row 1
	err := db.SaveConfig(&serverConfig)
	if err != nil {
		Logger.Error("Unable to write server config to database", "error", err)
	}
}

// CalculateUUID generates a ULID for the given time
func CalculateUUID(time time.Time) (ulid.ULID, error) {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.UnixNano())), 0)
	newULID, err := ulid.New(ulid.Timestamp(time), entropy)
	if err != nil {
		return newULID, err
	}
	return newULID, nil
}
