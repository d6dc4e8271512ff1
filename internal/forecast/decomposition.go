package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/models"
)

// seasonalityPrior is the ridge penalty on seasonal and holiday terms. It
// keeps short series solvable when there are more terms than points.
const seasonalityPrior = 1e-3

// sigmaFloor keeps bands open on a perfect fit, in units of the value scale
const sigmaFloor = 1e-6

// Seasonality is one Fourier seasonal component
type Seasonality struct {
	Name   string
	Period float64 // days
	Order  int
}

var (
	yearlySeasonality = Seasonality{Name: "yearly", Period: 365.25, Order: 10}
	weeklySeasonality = Seasonality{Name: "weekly", Period: 7, Order: 3}
	dailySeasonality  = Seasonality{Name: "daily", Period: 1, Order: 4}
)

// DecompositionEngine fits trend + Fourier seasonality + holiday effects by
// least squares and derives the interval from the residual spread
type DecompositionEngine struct{}

// NewDecompositionEngine creates the default engine
func NewDecompositionEngine() *DecompositionEngine {
	return &DecompositionEngine{}
}

// Name returns the engine name
func (e *DecompositionEngine) Name() string {
	return "decomposition"
}

// FitPredict fits the series and predicts history plus horizon steps
func (e *DecompositionEngine) FitPredict(ctx context.Context, series *models.Series, horizon int, config models.ModelConfig) (*models.Forecast, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	history := uniqueTimestamps(series)
	if len(history) < 2 {
		return nil, errors.ErrInsufficientData
	}
	y := series.Values()
	if floats.Max(y) == floats.Min(y) {
		return nil, errors.ErrDegenerateSeries
	}

	config = config.WithDefaults()
	s := inferStep(history)
	design := newDesign(history, s, config)

	scale := math.Max(math.Abs(floats.Max(y)), math.Abs(floats.Min(y)))
	ys := make([]float64, len(y))
	floats.ScaleTo(ys, 1/scale, y)

	model, err := design.fit(series, ys, config.SeasonalityMode)
	if err != nil {
		return nil, err
	}

	fitted := make([]float64, series.Len())
	for i, p := range series.Points {
		fitted[i] = model.predict(p.Timestamp)
	}
	residuals := make([]float64, len(ys))
	floats.SubTo(residuals, ys, fitted)
	sigma := math.Max(stat.StdDev(residuals, nil), sigmaFloor)
	z := zScore(config.IntervalWidth)

	timestamps := timeline(history, s, horizon)
	last := history[len(history)-1]
	points := make([]models.ForecastPoint, len(timestamps))
	for i, ts := range timestamps {
		width := z * sigma
		if ts.After(last) {
			ahead := float64(i - len(history) + 1)
			width *= math.Sqrt(1 + ahead/float64(len(history)))
		}
		yhat := model.predict(ts)
		points[i] = models.ForecastPoint{
			Timestamp: ts,
			Value:     yhat * scale,
			Lower:     (yhat - width) * scale,
			Upper:     (yhat + width) * scale,
		}
	}

	return &models.Forecast{
		Engine:    e.Name(),
		Frequency: s.approx(),
		Points:    points,
	}, nil
}

// design lays out the regression columns for one fit
type design struct {
	start        time.Time
	spanDays     float64
	growth       models.Growth
	seasonality  []Seasonality
	holidays     [][]models.Holiday
	holidayNames []string
}

func newDesign(history []time.Time, s step, config models.ModelConfig) *design {
	start := history[0]
	spanDays := history[len(history)-1].Sub(start).Hours() / 24
	d := &design{
		start:    start,
		spanDays: math.Max(spanDays, 1),
		growth:   config.Growth,
	}

	spacingDays := s.approx().Hours() / 24
	if enabled(config.YearlySeasonality, spanDays >= 730) {
		d.seasonality = append(d.seasonality, yearlySeasonality)
	}
	if enabled(config.WeeklySeasonality, spanDays >= 14 && spacingDays < 7) {
		d.seasonality = append(d.seasonality, weeklySeasonality)
	}
	if enabled(config.DailySeasonality, spanDays >= 2 && spacingDays < 1) {
		d.seasonality = append(d.seasonality, dailySeasonality)
	}

	// one regressor per holiday name, kept only when it covers training data
	byName := make(map[string][]models.Holiday)
	for _, h := range config.Holidays {
		if _, ok := byName[h.Name]; !ok {
			d.holidayNames = append(d.holidayNames, h.Name)
		}
		byName[h.Name] = append(byName[h.Name], h)
	}
	names := d.holidayNames[:0]
	for _, name := range d.holidayNames {
		if coversAny(byName[name], history) {
			names = append(names, name)
			d.holidays = append(d.holidays, byName[name])
		}
	}
	d.holidayNames = names

	return d
}

func enabled(toggle *bool, auto bool) bool {
	if toggle != nil {
		return *toggle
	}
	return auto
}

func coversAny(holidays []models.Holiday, timestamps []time.Time) bool {
	for _, ts := range timestamps {
		for _, h := range holidays {
			if h.Covers(ts) {
				return true
			}
		}
	}
	return false
}

func (d *design) trendRow(ts time.Time) []float64 {
	if d.growth == models.GrowthFlat {
		return []float64{1}
	}
	t := ts.Sub(d.start).Hours() / 24 / d.spanDays
	return []float64{1, t}
}

func (d *design) seasonalRow(ts time.Time) []float64 {
	days := float64(ts.Unix()) / 86400
	row := make([]float64, 0, d.seasonalWidth())
	for _, s := range d.seasonality {
		for k := 1; k <= s.Order; k++ {
			x := 2 * math.Pi * float64(k) * days / s.Period
			row = append(row, math.Sin(x), math.Cos(x))
		}
	}
	for _, group := range d.holidays {
		v := 0.0
		for _, h := range group {
			if h.Covers(ts) {
				v = 1
				break
			}
		}
		row = append(row, v)
	}
	return row
}

func (d *design) seasonalWidth() int {
	width := len(d.holidays)
	for _, s := range d.seasonality {
		width += 2 * s.Order
	}
	return width
}

// fittedModel holds the coefficients of one fit
type fittedModel struct {
	design         *design
	trend          []float64
	seasonal       []float64
	multiplicative bool
}

func (m *fittedModel) predict(ts time.Time) float64 {
	trend := floats.Dot(m.design.trendRow(ts), m.trend)
	seasonal := 0.0
	if len(m.seasonal) > 0 {
		seasonal = floats.Dot(m.design.seasonalRow(ts), m.seasonal)
	}
	if m.multiplicative {
		return trend * (1 + seasonal)
	}
	return trend + seasonal
}

func (d *design) fit(series *models.Series, ys []float64, mode models.SeasonalityMode) (*fittedModel, error) {
	trendWidth := len(d.trendRow(d.start))
	seasonalWidth := d.seasonalWidth()

	if mode == models.SeasonalityMultiplicative {
		trendRows := make([][]float64, series.Len())
		for i, p := range series.Points {
			trendRows[i] = d.trendRow(p.Timestamp)
		}
		trend, err := solveRidge(trendRows, ys, make([]bool, trendWidth))
		if err != nil {
			return nil, err
		}
		model := &fittedModel{design: d, trend: trend, multiplicative: true}
		if seasonalWidth == 0 {
			return model, nil
		}

		ratios := make([]float64, len(ys))
		seasonalRows := make([][]float64, series.Len())
		for i, p := range series.Points {
			level := floats.Dot(trendRows[i], trend)
			if math.Abs(level) < 1e-9 {
				return nil, fmt.Errorf("multiplicative seasonality needs a non-zero trend at %s", p.Timestamp.Format(time.RFC3339))
			}
			ratios[i] = ys[i]/level - 1
			seasonalRows[i] = d.seasonalRow(p.Timestamp)
		}
		penalized := make([]bool, seasonalWidth)
		for j := range penalized {
			penalized[j] = true
		}
		seasonal, err := solveRidge(seasonalRows, ratios, penalized)
		if err != nil {
			return nil, err
		}
		model.seasonal = seasonal
		return model, nil
	}

	rows := make([][]float64, series.Len())
	for i, p := range series.Points {
		rows[i] = append(d.trendRow(p.Timestamp), d.seasonalRow(p.Timestamp)...)
	}
	penalized := make([]bool, trendWidth+seasonalWidth)
	for j := trendWidth; j < len(penalized); j++ {
		penalized[j] = true
	}
	beta, err := solveRidge(rows, ys, penalized)
	if err != nil {
		return nil, err
	}
	return &fittedModel{
		design:   d,
		trend:    beta[:trendWidth],
		seasonal: beta[trendWidth:],
	}, nil
}

// solveRidge solves the least squares problem rows * beta = y with a ridge
// penalty on the flagged columns, by augmenting the system
func solveRidge(rows [][]float64, y []float64, penalized []bool) ([]float64, error) {
	n, p := len(rows), len(penalized)
	extra := 0
	for _, pen := range penalized {
		if pen {
			extra++
		}
	}

	a := mat.NewDense(n+extra, p, nil)
	b := mat.NewVecDense(n+extra, nil)
	for i, row := range rows {
		a.SetRow(i, row)
		b.SetVec(i, y[i])
	}
	r := n
	for j, pen := range penalized {
		if pen {
			a.Set(r, j, math.Sqrt(seasonalityPrior))
			r++
		}
	}

	var beta mat.VecDense
	if err := beta.SolveVec(a, b); err != nil {
		// a condition number warning still carries a usable solution
		if _, ok := err.(mat.Condition); !ok {
			return nil, fmt.Errorf("least squares solve failed: %w", err)
		}
	}
	return beta.RawVector().Data, nil
}

// zScore returns the two sided normal quantile for an interval width
func zScore(width float64) float64 {
	if width <= 0 || width >= 1 {
		width = models.DefaultIntervalWidth
	}
	return distuv.UnitNormal.Quantile((1 + width) / 2)
}
