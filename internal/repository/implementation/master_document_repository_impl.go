package implementation

import (
	"context"
	"encoding/json"
	"errors"

	"car-rental-assistant-be/internal/entity"
	"car-rental-assistant-be/internal/model"
	"car-rental-assistant-be/internal/repository/contract"

	"gorm.io/gorm"
)

type MasterDocumentRepositoryImpl struct {
	db *gorm.DB
}

func NewMasterDocumentRepository(db *gorm.DB) contract.MasterDocumentRepository {
	return &MasterDocumentRepositoryImpl{db: db}
}

func (r *MasterDocumentRepositoryImpl) FindActiveByType(ctx context.Context, docType string) (*entity.MasterDocument, error) {
	var doc model.MasterDocument
	err := r.db.WithContext(ctx).
		Where("doc_type = ? AND is_active = true", docType).
		Order("created_at DESC").
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var sections []*model.DocumentSection
	err = r.db.WithContext(ctx).
		Where("master_document_id = ?", doc.Id).
		Order("sort_order ASC").
		Find(&sections).Error
	if err != nil {
		return nil, err
	}

	result := &entity.MasterDocument{
		Id:            doc.Id,
		DocType:       doc.DocType,
		Version:       doc.Version,
		EffectiveFrom: doc.EffectiveFrom,
		IsActive:      doc.IsActive,
	}

	for _, sec := range sections {
		var contents []*model.DocumentContent
		err = r.db.WithContext(ctx).
			Where("section_id = ?", sec.Id).
			Order("sort_order ASC").
			Find(&contents).Error
		if err != nil {
			return nil, err
		}

		section := entity.DocumentSection{
			Id:        sec.Id,
			Title:     sec.Title,
			SortOrder: sec.SortOrder,
		}
		for _, c := range contents {
			var rows [][]string
			if len(c.TableRows) > 0 {
				// Malformed table payloads degrade to no rows.
				_ = json.Unmarshal(c.TableRows, &rows)
			}
			section.Contents = append(section.Contents, entity.DocumentContent{
				Id:          c.Id,
				ContentType: entity.DocContentType(c.ContentType),
				Text:        c.Text,
				Question:    c.Question,
				Answer:      c.Answer,
				TableRows:   rows,
				Tags:        []string(c.Tags),
				Category:    c.Category,
				SortOrder:   c.SortOrder,
			})
		}
		result.Sections = append(result.Sections, section)
	}

	return result, nil
}
