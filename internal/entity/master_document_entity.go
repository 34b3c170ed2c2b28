package entity

import (
	"time"

	"github.com/google/uuid"
)

type DocContentType string

const (
	DocContentText  DocContentType = "text"
	DocContentQA    DocContentType = "qa"
	DocContentTable DocContentType = "table"
)

// MasterDocument is the assembled content tree the indexing pipeline walks.
type MasterDocument struct {
	Id            uuid.UUID
	DocType       string
	Version       string
	EffectiveFrom *time.Time
	IsActive      bool
	Sections      []DocumentSection
}

type DocumentSection struct {
	Id        uuid.UUID
	Title     string
	SortOrder int
	Contents  []DocumentContent
}

type DocumentContent struct {
	Id          uuid.UUID
	ContentType DocContentType
	Text        string
	Question    string
	Answer      string
	TableRows   [][]string
	Tags        []string
	Category    string
	SortOrder   int
}
