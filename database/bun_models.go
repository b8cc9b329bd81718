package database

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/uptrace/bun"
)

// BunAttachment represents the attachments table for Bun ORM
type BunAttachment struct {
	bun.BaseModel `bun:"table:attachments,alias:a"`

	ID           int       `bun:"id,pk,autoincrement"`
	ULID         string    `bun:"ulid,notnull,unique"` // stored as string in DB
	Name         string    `bun:"name,notnull"`
	Path         string    `bun:"path,notnull,unique"`
	Hash         string    `bun:"hash,notnull"`
	UploadTime   time.Time `bun:"upload_time,notnull,default:current_timestamp"`
	DocumentType string    `bun:"document_type,notnull"`
	FullText     string    `bun:"full_text,nullzero"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// ToAttachment converts BunAttachment to Attachment
func (ba *BunAttachment) ToAttachment() (*Attachment, error) {
	parsedULID, err := ulid.Parse(ba.ULID)
	if err != nil {
		return nil, err
	}

	return &Attachment{
		ID:           ba.ID,
		ULID:         parsedULID,
		Name:         ba.Name,
		Path:         ba.Path,
		Hash:         ba.Hash,
		UploadTime:   ba.UploadTime,
		DocumentType: ba.DocumentType,
		FullText:     ba.FullText,
	}, nil
}

// FromAttachment converts Attachment to BunAttachment
func FromAttachment(att *Attachment) *BunAttachment {
	return &BunAttachment{
		ID:           att.ID,
		ULID:         att.ULID.String(),
		Name:         att.Name,
		Path:         att.Path,
		Hash:         att.Hash,
		UploadTime:   att.UploadTime,
		DocumentType: att.DocumentType,
		FullText:     att.FullText,
	}
}

// BunPageImage is one generated page image belonging to an attachment.
// Rows for an attachment are written in a single transaction, so the set is
// either absent or complete.
type BunPageImage struct {
	bun.BaseModel `bun:"table:page_images,alias:pi"`

	ID             int       `bun:"id,pk,autoincrement"`
	AttachmentULID string    `bun:"attachment_ulid,notnull"`
	PageNumber     int       `bun:"page_number,notnull"` // 1-based
	Path           string    `bun:"path,notnull"`        // relative to the media root
	CreatedAt      time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// BunSlide represents the slides table for Bun ORM
type BunSlide struct {
	bun.BaseModel `bun:"table:slides,alias:s"`

	ID         int       `bun:"id,pk,autoincrement"`
	ULID       string    `bun:"ulid,notnull,unique"`
	Title      string    `bun:"title,notnull"`
	Attachment string    `bun:"attachment_ulid,nullzero"` // selected PDF, empty when none
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// ToSlide converts BunSlide to Slide
func (bs *BunSlide) ToSlide() (*Slide, error) {
	parsedULID, err := ulid.Parse(bs.ULID)
	if err != nil {
		return nil, err
	}

	return &Slide{
		ID:         bs.ID,
		ULID:       parsedULID,
		Title:      bs.Title,
		Attachment: bs.Attachment,
		CreatedAt:  bs.CreatedAt,
	}, nil
}

// FromSlide converts Slide to BunSlide
func FromSlide(slide *Slide) *BunSlide {
	return &BunSlide{
		ID:         slide.ID,
		ULID:       slide.ULID.String(),
		Title:      slide.Title,
		Attachment: slide.Attachment,
		CreatedAt:  slide.CreatedAt,
	}
}

// BunServerConfig represents the server_config table for Bun ORM
type BunServerConfig struct {
	bun.BaseModel `bun:"table:server_config,alias:sc"`

	ID              int       `bun:"id,pk"`
	ListenAddrIP    string    `bun:"listen_addr_ip,default:''"`
	ListenAddrPort  string    `bun:"listen_addr_port,notnull,default:'8000'"`
	MediaPath       string    `bun:"media_path,notnull,default:''"`
	UploadFolderRel string    `bun:"upload_folder_rel,default:''"`
	Renderer        string    `bun:"renderer,notnull,default:'auto'"`
	PreviewWidth    int       `bun:"preview_width,notnull,default:320"`
	SweepInterval   int       `bun:"sweep_interval,notnull,default:60"`
	UseReverseProxy bool      `bun:"use_reverse_proxy,notnull,default:false"`
	BaseURL         string    `bun:"base_url,default:''"`
	CreatedAt       time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt       time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}
