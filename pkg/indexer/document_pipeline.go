package indexer

import (
	"fmt"
	"strings"

	"car-rental-assistant-be/internal/entity"
	"car-rental-assistant-be/pkg/utils"
)

const (
	chunkSize    = 1000
	chunkOverlap = 150

	maxTitleLength = 500
)

// docTypePrefixes front-load each chunk with its document's nature. The
// prefix is embedded alongside the content and noticeably helps retrieval
// separate, say, privacy answers from FAQ answers.
var docTypePrefixes = map[string]string{
	"terms":   "Terms and conditions of the vehicle rental platform. ",
	"faq":     "Frequently asked question about the vehicle rental platform. ",
	"privacy": "Privacy policy of the vehicle rental platform. ",
	"help":    "Help article for using the vehicle rental platform. ",
	"about":   "About the vehicle rental company. ",
}

// DocumentChunk is one embeddable unit produced from a master document.
type DocumentChunk struct {
	DocId      string
	DocType    string
	Title      string
	Content    string
	ChunkIndex int
	Metadata   map[string]interface{}
}

// ChunkMasterDocument walks the document tree, renders every content block
// to plain text, and splits the result into overlapping chunks. Chunk ids
// are deterministic ({doc_type}_{master_id}_{index}) so a re-run replaces
// rather than duplicates.
func ChunkMasterDocument(doc *entity.MasterDocument) []DocumentChunk {
	prefix := docTypePrefixes[doc.DocType]
	var chunks []DocumentChunk
	chunkIndex := 0

	for _, section := range doc.Sections {
		for _, content := range section.Contents {
			rendered := renderContent(section.Title, &content)
			if strings.TrimSpace(rendered) == "" {
				continue
			}

			title := sectionTitle(doc, &section, &content)
			for _, piece := range utils.SplitText(prefix+rendered, chunkSize, chunkOverlap) {
				chunks = append(chunks, DocumentChunk{
					DocId:      fmt.Sprintf("%s_%s_%d", doc.DocType, doc.Id, chunkIndex),
					DocType:    doc.DocType,
					Title:      truncateTitle(title),
					Content:    piece,
					ChunkIndex: chunkIndex,
					Metadata:   chunkMetadata(doc, &section, &content),
				})
				chunkIndex++
			}
		}
	}
	return chunks
}

// renderContent flattens one content block to prose. QA pairs keep their
// question so question-shaped user queries land on them; tables become
// line-per-row text.
func renderContent(sectionTitle string, content *entity.DocumentContent) string {
	switch content.ContentType {
	case entity.DocContentQA:
		if content.Question == "" && content.Answer == "" {
			return ""
		}
		return fmt.Sprintf("Question: %s\nAnswer: %s", content.Question, content.Answer)

	case entity.DocContentTable:
		if len(content.TableRows) == 0 {
			return ""
		}
		var b strings.Builder
		if sectionTitle != "" {
			fmt.Fprintf(&b, "%s:\n", sectionTitle)
		}
		header := content.TableRows[0]
		for _, row := range content.TableRows[1:] {
			cells := make([]string, 0, len(row))
			for i, cell := range row {
				if i < len(header) && header[i] != "" {
					cells = append(cells, fmt.Sprintf("%s: %s", header[i], cell))
				} else {
					cells = append(cells, cell)
				}
			}
			b.WriteString(strings.Join(cells, ", "))
			b.WriteString("\n")
		}
		return b.String()

	default:
		return content.Text
	}
}

func sectionTitle(doc *entity.MasterDocument, section *entity.DocumentSection, content *entity.DocumentContent) string {
	parts := []string{}
	if section.Title != "" {
		parts = append(parts, section.Title)
	}
	if content.ContentType == entity.DocContentQA && content.Question != "" {
		parts = append(parts, content.Question)
	}
	if len(parts) == 0 {
		return doc.DocType
	}
	return strings.Join(parts, " - ")
}

func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= maxTitleLength {
		return title
	}
	return string(runes[:maxTitleLength])
}

func chunkMetadata(doc *entity.MasterDocument, section *entity.DocumentSection, content *entity.DocumentContent) map[string]interface{} {
	metadata := map[string]interface{}{
		"master_document_id": doc.Id.String(),
		"doc_type":           doc.DocType,
		"version":            doc.Version,
		"section_title":      section.Title,
		"content_type":       string(content.ContentType),
	}
	if len(content.Tags) > 0 {
		metadata["tags"] = content.Tags
	}
	if content.Category != "" {
		metadata["category"] = content.Category
	}
	if content.ContentType == entity.DocContentQA && content.Question != "" {
		metadata["question"] = content.Question
	}
	return metadata
}
