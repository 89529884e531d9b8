package http

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"insurecast/display"
	"insurecast/ml"
	"insurecast/monitoring"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

const (
	bmiModeMeasure = "measure"
	bmiModeDirect  = "direct"
)

// HandlerConfig carries the dependencies of a Handler.
type HandlerConfig struct {
	Registry *ml.Registry
	Metrics  *monitoring.Metrics
	// Gatherer backs GET /metrics. Nil disables the route.
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
	Currency string
}

// Handler serves the estimate form and the ops endpoints.
type Handler struct {
	registry *ml.Registry
	metrics  *monitoring.Metrics
	gatherer prometheus.Gatherer
	logger   *zap.Logger
	currency string
}

// NewHandler builds a Handler. A nil logger discards output.
func NewHandler(config HandlerConfig) *Handler {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		registry: config.Registry,
		metrics:  config.Metrics,
		gatherer: config.Gatherer,
		logger:   logger.Named("handler"),
		currency: config.Currency,
	}
}

// Register adds every route to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleForm)
	mux.HandleFunc("POST /predict", h.handlePredict)
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /api/models", h.handleModels)
	if h.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
}

// formValues holds what the user typed so the page can be re-rendered as-is.
type formValues struct {
	Age        string
	Sex        string
	BMIMode    string
	HeightCM   string
	WeightKG   string
	BMI        string
	Children   string
	Smoker     string
	Region     string
	Deployment string
}

func defaultForm(deployment string) formValues {
	return formValues{
		Age:        "25",
		Sex:        string(ml.SexMale),
		BMIMode:    bmiModeMeasure,
		HeightCM:   "170",
		WeightKG:   "70",
		Children:   "0",
		Smoker:     string(ml.SmokerYes),
		Region:     string(ml.RegionNortheast),
		Deployment: deployment,
	}
}

type deploymentOption struct {
	Name   string
	Scheme ml.Scheme
}

type featureView struct {
	Name  string
	Value string
}

type resultView struct {
	Deployment  string
	BMI         string
	BMICategory string
	Charge      string
	Features    []featureView
}

type pageData struct {
	Form        formValues
	Regions     []ml.Region
	Deployments []deploymentOption
	Result      *resultView
	Errors      map[string]string
	Failure     string
	Limits      limits
}

type limits struct {
	MinAge, MaxAge           int
	MinHeight, MaxHeight     float64
	MinWeight, MaxWeight     float64
	MinBMI, MaxBMI           float64
	MinChildren, MaxChildren int
}

var formLimits = limits{
	MinAge: ml.MinAge, MaxAge: ml.MaxAge,
	MinHeight: ml.MinHeightCM, MaxHeight: ml.MaxHeightCM,
	MinWeight: ml.MinWeightKG, MaxWeight: ml.MaxWeightKG,
	MinBMI: ml.MinBMI, MaxBMI: ml.MaxBMI,
	MinChildren: ml.MinChildren, MaxChildren: ml.MaxChildren,
}

func (h *Handler) newPage(form formValues) pageData {
	data := pageData{Form: form, Regions: ml.Regions(), Limits: formLimits}
	for _, d := range h.registry.List() {
		data.Deployments = append(data.Deployments, deploymentOption{Name: d.Name(), Scheme: d.Scheme()})
	}
	return data
}

func (h *Handler) handleForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, h.newPage(defaultForm(h.registry.DefaultName())))
}

func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, pageData{Failure: "could not read the submitted form"})
		return
	}

	form := readForm(r)
	data := h.newPage(form)

	// metrics label only names configured deployments
	label := monitoring.UnknownDeployment
	deployment, err := h.registry.Get(form.Deployment)
	switch {
	case err == nil:
		label = deployment.Name()
	case !errors.Is(err, ml.ErrUnknownDeployment):
		data.Failure = "service is shutting down"
		h.render(w, r, http.StatusServiceUnavailable, data)
		return
	}

	raw, verr := parseInput(form)
	if deployment == nil {
		if verr == nil {
			verr = &ml.ValidationError{}
		}
		verr.Fields = append(verr.Fields, ml.FieldError{Field: "deployment", Reason: "unknown deployment"})
	}
	if verr != nil {
		h.rejectInput(w, r, data, label, verr, start)
		return
	}

	estimate, err := deployment.Estimate(r.Context(), raw)
	if err != nil {
		if errors.As(err, &verr) {
			h.rejectInput(w, r, data, label, verr, start)
			return
		}
		status := monitoring.StatusError
		if errors.Is(err, ml.ErrSchemaMismatch) {
			status = monitoring.StatusMismatch
		}
		h.metrics.ObservePrediction(label, status, time.Since(start))
		h.logger.Error("prediction failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.String("deployment", deployment.Name()),
			zap.Error(err),
		)
		data.Failure = "the model could not produce an estimate"
		h.render(w, r, http.StatusInternalServerError, data)
		return
	}

	h.metrics.ObservePrediction(label, monitoring.StatusOK, time.Since(start))
	data.Form.Deployment = deployment.Name()
	data.Result = h.newResult(estimate)
	h.render(w, r, http.StatusOK, data)
}

func (h *Handler) rejectInput(w http.ResponseWriter, r *http.Request, data pageData, deployment string, verr *ml.ValidationError, start time.Time) {
	data.Errors = make(map[string]string, len(verr.Fields))
	fields := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		if _, seen := data.Errors[f.Field]; !seen {
			data.Errors[f.Field] = f.Reason
		}
		fields = append(fields, f.Field)
	}
	h.metrics.ObserveValidationFailure(fields...)
	h.metrics.ObservePrediction(deployment, monitoring.StatusInvalid, time.Since(start))
	h.logger.Debug("input rejected",
		zap.String("request_id", GetRequestID(r.Context())),
		zap.Strings("fields", fields),
	)
	h.render(w, r, http.StatusUnprocessableEntity, data)
}

func (h *Handler) newResult(e ml.Estimate) *resultView {
	view := &resultView{
		Deployment:  e.Deployment,
		BMI:         display.FormatBMI(e.BMI),
		BMICategory: display.BMICategory(e.BMI),
		Charge:      display.FormatCharge(h.currency, e.Charge),
	}
	for _, f := range e.Vector.Features {
		value := f.Label
		if f.Kind == ml.Numeric {
			value = strconv.FormatFloat(f.Num, 'f', -1, 64)
		}
		view.Features = append(view.Features, featureView{Name: f.Name, Value: value})
	}
	return view
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, data); err != nil {
		h.logger.Error("render page",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err),
		)
	}
}

func readForm(r *http.Request) formValues {
	get := func(key string) string {
		return strings.TrimSpace(r.PostFormValue(key))
	}
	form := formValues{
		Age:        get("age"),
		Sex:        strings.ToLower(get("sex")),
		BMIMode:    get("bmi_mode"),
		HeightCM:   get("height_cm"),
		WeightKG:   get("weight_kg"),
		BMI:        get("bmi"),
		Children:   get("children"),
		Smoker:     strings.ToLower(get("smoker")),
		Region:     strings.ToLower(get("region")),
		Deployment: get("deployment"),
	}
	if form.BMIMode != bmiModeDirect {
		form.BMIMode = bmiModeMeasure
	}
	return form
}

// parseInput converts the form strings. Range and category checks are left
// to RawInput.Validate.
func parseInput(form formValues) (ml.RawInput, *ml.ValidationError) {
	verr := &ml.ValidationError{}
	raw := ml.RawInput{
		Sex:    ml.Sex(form.Sex),
		Smoker: ml.Smoker(form.Smoker),
		Region: ml.Region(form.Region),
	}

	var err error
	if raw.Age, err = strconv.Atoi(form.Age); err != nil {
		verr.Fields = append(verr.Fields, ml.FieldError{Field: "age", Reason: "must be a whole number"})
	}
	if raw.Children, err = strconv.Atoi(form.Children); err != nil {
		verr.Fields = append(verr.Fields, ml.FieldError{Field: "children", Reason: "must be a whole number"})
	}

	number := func(field, value string) *float64 {
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			verr.Fields = append(verr.Fields, ml.FieldError{Field: field, Reason: "must be a number"})
			return nil
		}
		return &v
	}
	if form.BMIMode == bmiModeDirect {
		raw.BMI = number("bmi", form.BMI)
	} else {
		raw.HeightCM = number("height_cm", form.HeightCM)
		raw.WeightKG = number("weight_kg", form.WeightKG)
	}

	if len(verr.Fields) > 0 {
		return ml.RawInput{}, verr
	}
	return raw, nil
}

type healthResponse struct {
	Status      string `json:"status"`
	Deployments int    `json:"deployments"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Deployments: h.registry.Len()}
	status := http.StatusOK
	if resp.Deployments == 0 {
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, r, status, resp)
}

type modelResponse struct {
	Name    string   `json:"name"`
	Default bool     `json:"default"`
	Type    string   `json:"type"`
	Version string   `json:"version"`
	Scheme  string   `json:"scheme"`
	Columns []string `json:"columns"`
	Rules   []string `json:"rules,omitempty"`
}

func (h *Handler) handleModels(w http.ResponseWriter, r *http.Request) {
	deployments := h.registry.List()
	resp := make([]modelResponse, 0, len(deployments))
	for _, d := range deployments {
		info := d.Info()
		resp = append(resp, modelResponse{
			Name:    d.Name(),
			Default: d.Name() == h.registry.DefaultName(),
			Type:    info.Type,
			Version: info.Version,
			Scheme:  string(info.Scheme),
			Columns: info.Columns,
			Rules:   d.Rules(),
		})
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("write response",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
}
