package kpi

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dbsmedya/outreachkpi/internal/record"
)

// LinkedIn prospect list fields.
const (
	LinkedInFieldStatus    = "Status"
	LinkedInFieldResponded = "¿Respondió?"
	LinkedInFieldFinal     = "Final"
	LinkedInFieldCompany   = "Empresa"
	LinkedInFieldSector    = "Sector"
	LinkedInFieldFollowUp1 = "Seguimiento_1"
	LinkedInFieldFollowUp2 = "Seguimiento_2"
	LinkedInFieldMessage   = "Mensaje"
)

const (
	linkedInSentStatus     = "ENVIADO"
	linkedInPendingStatus  = "pendiente"
	linkedInResponseMarker = "recibió respuesta"
	linkedInSectorsTop     = 5
	linkedInRecentActivity = 10
)

// ProspectActivity summarises one of the most recent prospects.
type ProspectActivity struct {
	Name        string `json:"name" yaml:"name"`
	HasMessage  bool   `json:"hasMessage" yaml:"hasMessage"`
	HasFollowUp bool   `json:"hasFollowUp" yaml:"hasFollowUp"`
	IsFinal     bool   `json:"isFinal" yaml:"isFinal"`
}

// LinkedInMetrics are the metrics of a LinkedIn prospect list.
type LinkedInMetrics struct {
	TotalProspects     int                `json:"totalProspects" yaml:"totalProspects"`
	ConnectionsSent    int                `json:"connectionsSent" yaml:"connectionsSent"`
	ResponsesReceived  int                `json:"responsesReceived" yaml:"responsesReceived"`
	ContactedProspects int                `json:"contactedProspects" yaml:"contactedProspects"`
	FinalProspects     int                `json:"finalProspects" yaml:"finalProspects"`
	TotalCompanies     int                `json:"totalCompanies" yaml:"totalCompanies"`
	TotalSectors       int                `json:"totalSectors" yaml:"totalSectors"`
	SentShare          float64            `json:"sentShare" yaml:"sentShare"`
	ContactedRate      float64            `json:"contactedRate" yaml:"contactedRate"`
	PendingRate        float64            `json:"pendingRate" yaml:"pendingRate"`
	ResponseRate       float64            `json:"responseRate" yaml:"responseRate"`
	FinalRate          float64            `json:"finalRate" yaml:"finalRate"`
	FollowUpRate       float64            `json:"followUpRate" yaml:"followUpRate"`
	AvgMessageLength   float64            `json:"avgMessageLength" yaml:"avgMessageLength"`
	TimeSavedMinutes   float64            `json:"timeSavedMinutes" yaml:"timeSavedMinutes"`
	ManualEffortSaved  float64            `json:"manualEffortSaved" yaml:"manualEffortSaved"`
	ProjectedRevenue   float64            `json:"projectedRevenue" yaml:"projectedRevenue"`
	ROI                float64            `json:"roi" yaml:"roi"`
	SectorsData        []Bucket           `json:"sectorsData" yaml:"sectorsData"`
	RecentActivity     []ProspectActivity `json:"recentActivity" yaml:"recentActivity"`
	Funnel             []FunnelStage      `json:"funnel" yaml:"funnel"`
}

func hasLinkedInResponse(r record.Record) bool {
	if strings.EqualFold(r.String(LinkedInFieldResponded), linkedInResponseMarker) {
		return true
	}
	return r.Bool(LinkedInFieldResponded)
}

func isContacted(r record.Record) bool {
	s := r.String(LinkedInFieldStatus)
	return s != "" && strings.ToLower(s) != linkedInPendingStatus
}

func hasFollowUp(r record.Record) bool {
	return r.String(LinkedInFieldFollowUp1) != "" || r.String(LinkedInFieldFollowUp2) != ""
}

func computeLinkedIn(records []record.Record, b Business, f Formulas) *LinkedInMetrics {
	m := &LinkedInMetrics{TotalProspects: len(records)}

	var followUps, messages, messageRunes int
	for _, r := range records {
		if strings.ToUpper(r.String(LinkedInFieldStatus)) == linkedInSentStatus {
			m.ConnectionsSent++
		}
		if hasLinkedInResponse(r) {
			m.ResponsesReceived++
		}
		if isContacted(r) {
			m.ContactedProspects++
		}
		if r.Bool(LinkedInFieldFinal) {
			m.FinalProspects++
		}
		if hasFollowUp(r) {
			followUps++
		}
		if r.String(LinkedInFieldMessage) != "" {
			messages++
			messageRunes += utf8.RuneCountInString(r.Raw(LinkedInFieldMessage))
		}
	}

	m.TotalCompanies = Distinct(records, LinkedInFieldCompany)
	m.TotalSectors = Distinct(records, LinkedInFieldSector)

	m.SentShare = Rate(m.ConnectionsSent, m.TotalProspects)
	m.ContactedRate = Rate(m.ContactedProspects, m.TotalProspects)
	m.PendingRate = 0
	if m.TotalProspects > 0 {
		m.PendingRate = clampPercent(100 - m.ContactedRate)
	}
	switch f[MetricResponseRate] {
	case ByTotal:
		m.ResponseRate = Rate(m.ResponsesReceived, m.TotalProspects)
	default:
		m.ResponseRate = Rate(m.ResponsesReceived, m.ConnectionsSent)
	}
	m.FinalRate = Rate(m.FinalProspects, m.TotalProspects)
	m.FollowUpRate = Rate(followUps, m.TotalProspects)
	m.AvgMessageLength = mean(float64(messageRunes), messages)

	m.TimeSavedMinutes = float64(m.ContactedProspects) * b.MinutesPerRecord
	m.ManualEffortSaved = math.Round(m.TimeSavedMinutes / 60 * b.HourlyRate)
	m.ProjectedRevenue = round2(b.revenueFor(m.FinalProspects))
	m.ROI = ROI(m.ProjectedRevenue, b.SystemCost)

	m.SectorsData = Breakdown(records, LinkedInFieldSector, linkedInSectorsTop, nil)
	m.RecentActivity = recentActivity(records)

	m.Funnel = BuildFunnel(
		Stage{"Prospectos", m.TotalProspects},
		Stage{"Contactados", m.ContactedProspects},
		Stage{"Conexiones Enviadas", m.ConnectionsSent},
		Stage{"Respuestas", m.ResponsesReceived},
		Stage{"Finalizados", m.FinalProspects},
	)
	return m
}

func recentActivity(records []record.Record) []ProspectActivity {
	n := len(records)
	if n > linkedInRecentActivity {
		n = linkedInRecentActivity
	}
	out := make([]ProspectActivity, n)
	for i := 0; i < n; i++ {
		r := records[i]
		out[i] = ProspectActivity{
			Name:        "Prospecto " + strconv.Itoa(i+1),
			HasMessage:  r.String(LinkedInFieldMessage) != "",
			HasFollowUp: hasFollowUp(r),
			IsFinal:     r.Bool(LinkedInFieldFinal),
		}
	}
	return out
}
