// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Anamnesis Contributors

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anamnesis-dev/aurora/internal/cases"
	"github.com/anamnesis-dev/aurora/internal/provider"
)

// Tool names, fixed at startup.
const (
	ToolListMedicalCases      = "list_medical_cases"
	ToolGetCaseDetail         = "get_case_detail"
	ToolAnalyzeScan           = "analyze_scan"
	ToolAnatomyModel          = "anatomy_model"
	ToolDifferentialDiagnosis = "differential_diagnosis"
)

// builtinTools implements the five platform tools. The two case tools read
// from the case store; the other three are pure functions over their input.
// Handlers return a payload and an error; the dispatcher turns errors into
// structured error payloads, so nothing here reaches the loop as a Go error.
type builtinTools struct {
	cases cases.Store
}

type caseSummaryPayload struct {
	cases.Summary
	Accuracy *int `json:"accuracy"`
}

func (b *builtinTools) listMedicalCases(ctx context.Context, args json.RawMessage) (any, error) {
	var in struct {
		Difficulty cases.Difficulty `json:"difficulty"`
		Limit      int              `json:"limit"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if in.Difficulty != "" && !in.Difficulty.Valid() {
		return nil, fmt.Errorf("invalid difficulty %q", in.Difficulty)
	}

	summaries, err := b.cases.ListPublished(ctx, cases.ListFilter{
		Difficulty: in.Difficulty,
		Limit:      in.Limit,
	})
	if err != nil {
		return nil, err
	}

	out := make([]caseSummaryPayload, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, caseSummaryPayload{Summary: s, Accuracy: s.Accuracy()})
	}
	return map[string]any{
		"cases": out,
		"total": len(out),
	}, nil
}

func (b *builtinTools) getCaseDetail(ctx context.Context, args json.RawMessage) (any, error) {
	var in struct {
		CaseID string `json:"case_id"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if in.CaseID == "" {
		return nil, errors.New("case_id is required")
	}

	c, err := b.cases.GetPublished(ctx, in.CaseID)
	if err != nil {
		if errors.Is(err, cases.ErrNotFound) {
			return nil, errors.New("Случай не найден")
		}
		return nil, err
	}
	return c, nil
}

func (b *builtinTools) analyzeScan(_ context.Context, args json.RawMessage) (any, error) {
	var in struct {
		ScanType        string `json:"scan_type"`
		Region          string `json:"region"`
		Findings        string `json:"findings"`
		ClinicalContext string `json:"clinical_context"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if in.ScanType == "" || in.Region == "" || in.Findings == "" {
		return nil, errors.New("scan_type, region and findings are required")
	}
	if in.ClinicalContext == "" {
		in.ClinicalContext = "не указан"
	}

	// The model does the interpretation; the tool supplies structured
	// context plus the atlas layer list for the region.
	return map[string]any{
		"scan_type":          in.ScanType,
		"region":             in.Region,
		"findings":           in.Findings,
		"clinical_context":   in.ClinicalContext,
		"aurora3d_layers":    regionLayers(in.Region),
		"analysis_requested": true,
	}, nil
}

func (b *builtinTools) anatomyModel(_ context.Context, args json.RawMessage) (any, error) {
	var in struct {
		Region      string `json:"region"`
		DetailLevel string `json:"detail_level"`
		Focus       string `json:"focus"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if in.Region == "" {
		return nil, errors.New("region is required")
	}
	if in.DetailLevel == "" {
		in.DetailLevel = "standard"
	}
	if in.Focus == "" {
		in.Focus = "все структуры"
	}

	return map[string]any{
		"region":       in.Region,
		"detail_level": in.DetailLevel,
		"focus":        in.Focus,
		"model_data":   anatomyModelData(in.Region, in.DetailLevel, in.Focus),
	}, nil
}

func (b *builtinTools) differentialDiagnosis(_ context.Context, args json.RawMessage) (any, error) {
	var in struct {
		Symptoms        []string        `json:"symptoms"`
		ImagingFindings string          `json:"imaging_findings"`
		PatientData     json.RawMessage `json:"patient_data"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if len(in.Symptoms) == 0 {
		return nil, errors.New("symptoms are required")
	}
	if in.ImagingFindings == "" {
		in.ImagingFindings = "не указаны"
	}
	patientData := in.PatientData
	if len(patientData) == 0 {
		patientData = json.RawMessage("{}")
	}

	// Ranking is left to the model.
	return map[string]any{
		"symptoms":           in.Symptoms,
		"imaging_findings":   in.ImagingFindings,
		"patient_data":       patientData,
		"analysis_requested": true,
	}, nil
}

// builtinDefinitions declares the model-facing schema of the five tools, in
// the order they are sent to the provider.
func builtinDefinitions() []provider.ToolDefinition {
	return []provider.ToolDefinition{
		{
			Name:        ToolListMedicalCases,
			Description: "Получить список клинических случаев с платформы Анамнез. Можно фильтровать по сложности.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"difficulty": map[string]any{
						"type":        "string",
						"enum":        []string{"easy", "medium", "hard"},
						"description": "Сложность случая (необязательно)",
					},
					"limit": map[string]any{
						"type":        "number",
						"description": "Количество случаев для получения (по умолчанию 5)",
					},
				},
				"required": []string{},
			},
		},
		{
			Name:        ToolGetCaseDetail,
			Description: "Получить подробную информацию о конкретном клиническом случае по его ID, включая варианты ответов и 3D-визуализацию.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"case_id": map[string]any{
						"type":        "string",
						"description": "UUID клинического случая",
					},
				},
				"required": []string{"case_id"},
			},
		},
		{
			Name: ToolAnalyzeScan,
			Description: "Анализирует и интерпретирует 3D медицинское изображение (МРТ, КТ, рентген, УЗИ, ПЭТ). " +
				"Описывает патологические изменения, нормальную анатомию и клиническое значение находок " +
				"в контексте Aurora 3D визуализации.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"scan_type": map[string]any{
						"type":        "string",
						"enum":        []string{"МРТ", "КТ", "рентген", "УЗИ", "ПЭТ", "МСКТ", "3D-реконструкция"},
						"description": "Тип медицинского изображения",
					},
					"region": map[string]any{
						"type":        "string",
						"description": "Анатомическая область (например: \"головной мозг\", \"грудная клетка\")",
					},
					"findings": map[string]any{
						"type":        "string",
						"description": "Описание находок или жалоба пациента для анализа",
					},
					"clinical_context": map[string]any{
						"type":        "string",
						"description": "Клинический контекст: симптомы, анамнез пациента (необязательно)",
					},
				},
				"required": []string{"scan_type", "region", "findings"},
			},
		},
		{
			Name: ToolAnatomyModel,
			Description: "Предоставляет подробное описание 3D-анатомической модели выбранной области тела: " +
				"слои, структуры, сосуды, нервы — как в Aurora 3D Atlas.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"region": map[string]any{
						"type":        "string",
						"description": "Анатомическая область (например: \"сердце\", \"коленный сустав\")",
					},
					"detail_level": map[string]any{
						"type":        "string",
						"enum":        []string{"basic", "standard", "detailed"},
						"description": "Уровень детализации модели",
					},
					"focus": map[string]any{
						"type":        "string",
						"description": "Акцент описания: \"сосуды\", \"нервы\", \"мышцы\", \"кости\" (необязательно)",
					},
				},
				"required": []string{"region"},
			},
		},
		{
			Name: ToolDifferentialDiagnosis,
			Description: "Составляет дифференциальный диагноз на основе симптомов, данных осмотра и " +
				"результатов 3D-визуализации. Ранжирует диагнозы по вероятности.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"symptoms": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "Список симптомов пациента",
					},
					"imaging_findings": map[string]any{
						"type":        "string",
						"description": "Данные визуализации (МРТ/КТ/рентген)",
					},
					"patient_data": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"age": map[string]any{"type": "number"},
							"sex": map[string]any{"type": "string", "enum": []string{"М", "Ж"}},
							"comorbidities": map[string]any{
								"type":  "array",
								"items": map[string]any{"type": "string"},
							},
						},
						"description": "Данные пациента (необязательно)",
					},
				},
				"required": []string{"symptoms"},
			},
		},
	}
}
