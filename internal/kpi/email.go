package kpi

import (
	"strings"

	"github.com/dbsmedya/outreachkpi/internal/record"
)

// Email campaign fields.
const (
	EmailFieldStatus    = "Status"
	EmailFieldResponded = "Respondidos"
	EmailFieldMeeting   = "¿Agendaron llamada?"
	EmailFieldIndustry  = "Industria"
	EmailFieldJobTitle  = "Puesto"
)

const (
	emailIndustriesTop = 7
	emailJobTitlesTop  = 5
)

// sentStatuses are the Status values that mark an email as sent.
var sentStatuses = map[string]struct{}{
	"sent":      {},
	"enviado":   {},
	"completed": {},
}

// EmailMetrics are the metrics of an email campaign dataset.
type EmailMetrics struct {
	TotalLeads                  int           `json:"totalLeads" yaml:"totalLeads"`
	EmailsSent                  int           `json:"emailsSent" yaml:"emailsSent"`
	TotalResponses              int           `json:"totalResponses" yaml:"totalResponses"`
	MeetingsBooked              int           `json:"meetingsBooked" yaml:"meetingsBooked"`
	ReplyRate                   float64       `json:"replyRate" yaml:"replyRate"`
	MeetingRate                 float64       `json:"meetingRate" yaml:"meetingRate"`
	ResponseToMeetingConversion float64       `json:"responseToMeetingConversion" yaml:"responseToMeetingConversion"`
	HoursSaved                  float64       `json:"hoursSaved" yaml:"hoursSaved"`
	MoneySaved                  float64       `json:"moneySaved" yaml:"moneySaved"`
	ProjectedRevenue            float64       `json:"projectedRevenue" yaml:"projectedRevenue"`
	IndustriesData              []Bucket      `json:"industriesData" yaml:"industriesData"`
	JobTitleResponses           []Bucket      `json:"jobTitleResponses" yaml:"jobTitleResponses"`
	Funnel                      []FunnelStage `json:"funnel" yaml:"funnel"`
}

func isEmailSent(r record.Record) bool {
	_, ok := sentStatuses[strings.ToLower(r.String(EmailFieldStatus))]
	return ok
}

func hasEmailResponse(r record.Record) bool {
	return r.Bool(EmailFieldResponded)
}

func computeEmail(records []record.Record, b Business) *EmailMetrics {
	m := &EmailMetrics{TotalLeads: len(records)}

	for _, r := range records {
		if isEmailSent(r) {
			m.EmailsSent++
		}
		if hasEmailResponse(r) {
			m.TotalResponses++
		}
		if r.Bool(EmailFieldMeeting) {
			m.MeetingsBooked++
		}
	}

	m.ReplyRate = Rate(m.TotalResponses, m.EmailsSent)
	m.MeetingRate = Rate(m.MeetingsBooked, m.EmailsSent)
	m.ResponseToMeetingConversion = Rate(m.MeetingsBooked, m.TotalResponses)

	m.HoursSaved = b.hoursFor(m.EmailsSent)
	m.MoneySaved = round2(m.HoursSaved * b.HourlyRate)
	m.ProjectedRevenue = round2(b.revenueFor(m.MeetingsBooked))

	m.IndustriesData = Breakdown(records, EmailFieldIndustry, emailIndustriesTop, nil)
	m.JobTitleResponses = Breakdown(records, EmailFieldJobTitle, emailJobTitlesTop, hasEmailResponse)

	m.Funnel = BuildFunnel(
		Stage{"Leads", m.TotalLeads},
		Stage{"Emails Enviados", m.EmailsSent},
		Stage{"Respuestas", m.TotalResponses},
		Stage{"Reuniones", m.MeetingsBooked},
	)
	return m
}
