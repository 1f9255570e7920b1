package contraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Параметры правила 5-1-1
const (
	AlertWindowMS       int64   = 3600 * 1000
	AlertMinEntries             = 6
	AlertMinAvgDuration float64 = 60
	AlertMaxAvgInterval float64 = 300
)

var (
	ErrInvalidContraction = errors.New("invalid contraction")
	ErrMalformedLog       = errors.New("malformed contraction log")
)

// Contraction представляет одно зафиксированное сокращение.
// Duration всегда вычисляется из StartTime и EndTime.
type Contraction struct {
	StartTime int64 `json:"startTime"` // epoch millis
	EndTime   int64 `json:"endTime"`   // epoch millis
	Duration  int   `json:"duration"`  // секунды
}

// New создает сокращение из двух меток времени
func New(startMS, endMS int64) (Contraction, error) {
	if endMS < startMS {
		return Contraction{}, fmt.Errorf("%w: end %d before start %d", ErrInvalidContraction, endMS, startMS)
	}
	return Contraction{
		StartTime: startMS,
		EndTime:   endMS,
		Duration:  durationSeconds(startMS, endMS),
	}, nil
}

func durationSeconds(startMS, endMS int64) int {
	return int((endMS - startMS) / 1000)
}

// Validate проверяет инварианты записи
func (c Contraction) Validate() error {
	if c.EndTime < c.StartTime {
		return fmt.Errorf("%w: end %d before start %d", ErrInvalidContraction, c.EndTime, c.StartTime)
	}
	if c.Duration != durationSeconds(c.StartTime, c.EndTime) {
		return fmt.Errorf("%w: duration %d does not match timestamps", ErrInvalidContraction, c.Duration)
	}
	return nil
}

// Log - журнал сокращений, новые первыми
type Log []Contraction

// Summary - средние значения по всему журналу
type Summary struct {
	AvgDuration  float64 `json:"avgDuration"`  // секунды
	AvgFrequency float64 `json:"avgFrequency"` // секунды между началами
}

// Alert - предупреждение о вероятных активных родах
type Alert struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Summarize считает средние по журналу. Для журнала короче двух записей
// результат не определен (ok = false).
func Summarize(log Log) (Summary, bool) {
	if len(log) < 2 {
		return Summary{}, false
	}
	return Summary{
		AvgDuration:  averageDuration(log),
		AvgFrequency: averageFrequency(log),
	}, true
}

func averageDuration(log Log) float64 {
	if len(log) == 0 {
		return 0
	}
	total := 0
	for _, c := range log {
		total += c.Duration
	}
	return float64(total) / float64(len(log))
}

// averageFrequency - среднее по соседним парам (i, i+1) в порядке "новые первыми"
func averageFrequency(log Log) float64 {
	if len(log) < 2 {
		return 0
	}
	var total float64
	for i := 0; i < len(log)-1; i++ {
		total += float64(log[i].StartTime-log[i+1].StartTime) / 1000
	}
	return total / float64(len(log)-1)
}

// RecentWindow возвращает записи, начавшиеся в течение последнего часа
func RecentWindow(log Log, now time.Time) Log {
	since := now.UnixMilli() - AlertWindowMS
	recent := make(Log, 0, len(log))
	for _, c := range log {
		if c.StartTime > since {
			recent = append(recent, c)
		}
	}
	return recent
}

// DetectLaborAlert применяет правило 5-1-1 к последнему часу журнала
func DetectLaborAlert(log Log, now time.Time) *Alert {
	recent := RecentWindow(log, now)
	if len(recent) < AlertMinEntries {
		return nil
	}

	avgDuration := averageDuration(recent)
	avgFrequency := averageFrequency(recent)

	if avgDuration < AlertMinAvgDuration || avgFrequency > AlertMaxAvgInterval {
		return nil
	}

	return &Alert{
		Title: "Labor May Be Progressing!",
		Message: fmt.Sprintf("Contractions over the last hour are averaging %s long and %s apart. "+
			"This matches the 5-1-1 rule. It might be time to contact your provider.",
			FormatTime(avgDuration), FormatTime(avgFrequency)),
	}
}

// FrequencySince возвращает интервал в секундах между записью index и
// предыдущей по времени записью (index+1). Для самой старой записи ok = false.
func FrequencySince(log Log, index int) (int, bool) {
	if index < 0 || index >= len(log)-1 {
		return 0, false
	}
	return int((log[index].StartTime - log[index+1].StartTime) / 1000), true
}

// FormatTime форматирует секунды как mm:ss
func FormatTime(seconds float64) string {
	total := int(math.Round(seconds))
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// ShareText готовит текстовую выгрузку журнала для отправки врачу
func ShareText(log Log, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}

	var sb strings.Builder
	if summary, ok := Summarize(log); ok {
		fmt.Fprintf(&sb, "Summary: Avg Duration %s, Avg Frequency %s\n\n",
			FormatTime(summary.AvgDuration), FormatTime(summary.AvgFrequency))
	}

	sb.WriteString("Contraction Log:")
	for i, c := range log {
		started := time.UnixMilli(c.StartTime).In(loc).Format("15:04")
		fmt.Fprintf(&sb, "\n%d. %s - Duration: %s", i+1, started, FormatTime(float64(c.Duration)))
		if freq, ok := FrequencySince(log, i); ok && freq > 0 {
			fmt.Fprintf(&sb, " (Freq: %s)", FormatTime(float64(freq)))
		}
	}
	return sb.String()
}

// rawContraction нужен, чтобы отличить отсутствующее поле от нулевого
type rawContraction struct {
	StartTime *int64 `json:"startTime"`
	EndTime   *int64 `json:"endTime"`
	Duration  *int   `json:"duration"`
}

// DecodeLog разбирает сохраненный журнал. Любая ошибка формата или
// нарушение инварианта делает весь журнал недействительным.
func DecodeLog(data string) (Log, error) {
	var raw []rawContraction
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedLog, err)
	}

	log := make(Log, 0, len(raw))
	for i, r := range raw {
		if r.StartTime == nil || r.EndTime == nil || r.Duration == nil {
			return nil, fmt.Errorf("%w: entry %d is missing a required field", ErrMalformedLog, i)
		}
		c := Contraction{StartTime: *r.StartTime, EndTime: *r.EndTime, Duration: *r.Duration}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrMalformedLog, i, err)
		}
		log = append(log, c)
	}
	return log, nil
}

// EncodeLog сериализует журнал целиком
func EncodeLog(log Log) (string, error) {
	if log == nil {
		log = Log{}
	}
	data, err := json.Marshal(log)
	if err != nil {
		return "", fmt.Errorf("failed to marshal contraction log: %w", err)
	}
	return string(data), nil
}
