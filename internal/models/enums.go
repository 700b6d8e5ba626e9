package models

import "strings"

// Dimension is a categorical grouping attribute of a curve.
type Dimension string

const (
	DimPillar          Dimension = "pillar"
	DimCampaignProduct Dimension = "campaignproduct"
	DimMediaGroup      Dimension = "mediagroup"
	DimCurveName       Dimension = "curveName"
	DimModel           Dimension = "model"
)

// DefaultHierarchy is the laydown drill order.
var DefaultHierarchy = []Dimension{DimPillar, DimCampaignProduct, DimMediaGroup, DimCurveName}

func (d Dimension) Label() string {
	switch d {
	case DimPillar:
		return "Pillar"
	case DimCampaignProduct:
		return "Product"
	case DimMediaGroup:
		return "Media"
	case DimCurveName:
		return "Curve"
	case DimModel:
		return "Model"
	}
	return string(d)
}

func ParseDimension(s string) (Dimension, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pillar":
		return DimPillar, nil
	case "campaignproduct", "campaign_product", "product":
		return DimCampaignProduct, nil
	case "mediagroup", "media_group", "media":
		return DimMediaGroup, nil
	case "curvename", "curve_name", "curve":
		return DimCurveName, nil
	case "model", "model_id":
		return DimModel, nil
	}
	return "", &ParamError{Param: "dimension", Value: s}
}

// KPI is a selectable comparison metric.
type KPI string

const (
	KPISpend  KPI = "spend"
	KPIVolume KPI = "volume"
	KPIValue  KPI = "value"
	KPIProfit KPI = "profit"
	KPICPA    KPI = "cpa"
	KPIROI    KPI = "roi"
)

var AllKPIs = []KPI{KPISpend, KPIVolume, KPIValue, KPIProfit, KPICPA, KPIROI}

func ParseKPI(s string) (KPI, error) {
	switch k := KPI(strings.ToLower(strings.TrimSpace(s))); k {
	case KPISpend, KPIVolume, KPIValue, KPIProfit, KPICPA, KPIROI:
		return k, nil
	case "":
		return KPISpend, nil
	}
	return "", &ParamError{Param: "kpi", Value: s}
}

// LowerIsBetter reports whether a negative delta is the favorable direction.
func (k KPI) LowerIsBetter() bool { return k == KPICPA }
