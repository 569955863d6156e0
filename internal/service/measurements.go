package service

import (
	"context"
	"fmt"
	"mime/multipart"
	"sort"
	"strings"

	"github.com/google/uuid"

	"stitchdesk/internal/apperr"
	"stitchdesk/internal/models"
	"stitchdesk/internal/repository"
)

type TemplateRequest struct {
	Name     *string                 `json:"name" form:"name" binding:"omitempty,max=200"`
	ItemType *models.ItemType        `json:"item_type" form:"item_type" binding:"omitempty,itemtype"`
	Fields   *[]models.TemplateField `json:"fields"`
	IsActive *bool                   `json:"is_active" form:"is_active"`
}

type MeasurementRequest struct {
	Customer     *string        `json:"customer"`
	Template     *string        `json:"template"`
	Measurements *models.Values `json:"measurements"`
	Notes        *string        `json:"notes"`
}

type MeasurementService struct {
	Repo      repository.MeasurementRepository
	Customers repository.CustomerRepository
	Media     MediaStore
}

func (s *MeasurementService) CreateTemplate(ctx context.Context, u *models.User, req TemplateRequest, image *multipart.FileHeader) (*models.MeasurementTemplate, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	t := &models.MeasurementTemplate{ShopID: shopID, IsActive: true, Fields: []models.TemplateField{}}
	if err := s.applyTemplate(t, req, image, true); err != nil {
		return nil, err
	}
	return t, s.Repo.CreateTemplate(ctx, t)
}

func (s *MeasurementService) Template(ctx context.Context, u *models.User, id string) (*models.MeasurementTemplate, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	tid, err := parseID("template", id)
	if err != nil {
		return nil, err
	}
	t, err := s.Repo.GetTemplate(ctx, shopID, tid)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *MeasurementService) UpdateTemplate(ctx context.Context, u *models.User, id string, req TemplateRequest, image *multipart.FileHeader, full bool) (*models.MeasurementTemplate, error) {
	t, err := s.Template(ctx, u, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyTemplate(t, req, image, full); err != nil {
		return nil, err
	}
	return t, s.Repo.SaveTemplate(ctx, t)
}

func (s *MeasurementService) DeleteTemplate(ctx context.Context, u *models.User, id string) error {
	shopID, err := shopOf(u)
	if err != nil {
		return err
	}
	tid, err := parseID("template", id)
	if err != nil {
		return err
	}
	return s.Repo.DeleteTemplate(ctx, shopID, tid)
}

func (s *MeasurementService) Templates(ctx context.Context, u *models.User, f repository.TemplateFilter) ([]models.MeasurementTemplate, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	if f.ItemType != "" && !f.ItemType.Valid() {
		return nil, apperr.Invalid("item_type", "Invalid item type.")
	}
	return s.Repo.ListTemplates(ctx, shopID, f)
}

func (s *MeasurementService) applyTemplate(t *models.MeasurementTemplate, req TemplateRequest, image *multipart.FileHeader, requireAll bool) error {
	verr := &apperr.Validation{}
	if req.Name != nil || requireAll {
		name := ""
		if req.Name != nil {
			name = strings.TrimSpace(*req.Name)
		}
		if name == "" {
			verr.Add("name", "This field is required.")
		}
		t.Name = name
	}
	if req.ItemType != nil || requireAll {
		if req.ItemType == nil || !req.ItemType.Valid() {
			verr.Add("item_type", "Must be one of BLOUSE, SAREE, DRESS, OTHER.")
		} else {
			t.ItemType = *req.ItemType
		}
	}
	if req.Fields != nil {
		for _, msg := range validateTemplateFields(*req.Fields) {
			verr.Add("fields", msg)
		}
		t.Fields = *req.Fields
	}
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}
	if err := verr.OrNil(); err != nil {
		return err
	}
	if image != nil {
		path, err := s.Media.SaveImage(image, "measurement_templates")
		if err != nil {
			return apperr.Invalid("image", err.Error())
		}
		if t.ImagePath != "" {
			_ = s.Media.Remove(t.ImagePath)
		}
		t.ImagePath = path
	}
	return nil
}

// validateTemplateFields checks that every point is set and unique and that
// units are CM or INCH. An empty unit defaults to CM.
func validateTemplateFields(fields []models.TemplateField) []string {
	var msgs []string
	seen := make(map[string]bool, len(fields))
	for i := range fields {
		f := &fields[i]
		f.Point = strings.TrimSpace(f.Point)
		f.Label = strings.TrimSpace(f.Label)
		if f.Point == "" {
			msgs = append(msgs, fmt.Sprintf("Field %d: point is required.", i+1))
			continue
		}
		if seen[f.Point] {
			msgs = append(msgs, fmt.Sprintf("Duplicate point %q.", f.Point))
		}
		seen[f.Point] = true
		if f.Label == "" {
			f.Label = f.Point
		}
		switch f.Unit {
		case "":
			f.Unit = models.UnitCM
		case models.UnitCM, models.UnitInch:
		default:
			msgs = append(msgs, fmt.Sprintf("Field %q: unit must be CM or INCH.", f.Point))
		}
	}
	return msgs
}

// validateValues checks measured values against the template's points.
func validateValues(t *models.MeasurementTemplate, values models.Values) []string {
	var msgs []string
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	points := t.Points()
	for _, k := range keys {
		if _, ok := points[k]; !ok {
			msgs = append(msgs, fmt.Sprintf("Unknown measurement point %q for template %q.", k, t.Name))
			continue
		}
		if values[k].IsNegative() {
			msgs = append(msgs, fmt.Sprintf("Measurement %q must not be negative.", k))
		}
	}
	return msgs
}

func (s *MeasurementService) Create(ctx context.Context, u *models.User, req MeasurementRequest) (*models.Measurement, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	m := &models.Measurement{ShopID: shopID, Values: models.Values{}}
	if err := s.apply(ctx, shopID, m, req, true); err != nil {
		return nil, err
	}
	if err := s.Repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MeasurementService) Get(ctx context.Context, u *models.User, id string) (*models.Measurement, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	mid, err := parseID("measurement", id)
	if err != nil {
		return nil, err
	}
	m, err := s.Repo.Get(ctx, shopID, mid)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MeasurementService) Update(ctx context.Context, u *models.User, id string, req MeasurementRequest, full bool) (*models.Measurement, error) {
	m, err := s.Get(ctx, u, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, m.ShopID, m, req, full); err != nil {
		return nil, err
	}
	return m, s.Repo.Save(ctx, m)
}

func (s *MeasurementService) Delete(ctx context.Context, u *models.User, id string) error {
	shopID, err := shopOf(u)
	if err != nil {
		return err
	}
	mid, err := parseID("measurement", id)
	if err != nil {
		return err
	}
	return s.Repo.Delete(ctx, shopID, mid)
}

func (s *MeasurementService) List(ctx context.Context, u *models.User, customer string, p repository.PageRequest) (repository.Page[models.Measurement], error) {
	shopID, err := shopOf(u)
	if err != nil {
		return repository.Page[models.Measurement]{}, err
	}
	cid, err := parseOptionalID("customer", customer)
	if err != nil {
		return repository.Page[models.Measurement]{}, err
	}
	return s.Repo.List(ctx, shopID, cid, p)
}

func (s *MeasurementService) apply(ctx context.Context, shopID uuid.UUID, m *models.Measurement, req MeasurementRequest, requireAll bool) error {
	if req.Customer != nil || requireAll {
		if req.Customer == nil {
			return apperr.Invalid("customer", "This field is required.")
		}
		cid, err := uuid.Parse(*req.Customer)
		if err != nil {
			return apperr.Invalid("customer", "Invalid customer.")
		}
		if _, err := s.Customers.Get(ctx, shopID, cid); err != nil {
			if apperr.IsNotFound(err) {
				return apperr.Invalid("customer", "Invalid customer.")
			}
			return err
		}
		m.CustomerID = cid
	}
	if req.Template != nil {
		if *req.Template == "" {
			m.TemplateID, m.Template = nil, nil
		} else {
			tid, err := uuid.Parse(*req.Template)
			if err != nil {
				return apperr.Invalid("template", "Invalid template.")
			}
			t, err := s.Repo.GetTemplate(ctx, shopID, tid)
			if err != nil {
				if apperr.IsNotFound(err) {
					return apperr.Invalid("template", "Invalid template.")
				}
				return err
			}
			m.TemplateID, m.Template = &tid, t
		}
	}
	if req.Measurements != nil {
		m.Values = *req.Measurements
	}
	setString(&m.Notes, req.Notes)
	if m.Template != nil {
		verr := &apperr.Validation{}
		for _, msg := range validateValues(m.Template, m.Values) {
			verr.Add("measurements", msg)
		}
		return verr.OrNil()
	}
	return nil
}
