package kpi

import (
	"math"

	"github.com/dbsmedya/outreachkpi/internal/record"
)

// Connection automation fields.
const (
	ConnFieldAccepted     = "requestAccepted"
	ConnFieldResponded    = "responseReceived"
	ConnFieldError        = "messageError"
	ConnFieldTimeToAccept = "timeToAccept"
	ConnFieldFollowUps    = "followUpCount"
	ConnFieldConnections  = "connectionsCount"
)

// ConnectionsMetrics are the metrics of a connection automation dataset.
type ConnectionsMetrics struct {
	TotalInvitations      int           `json:"totalInvitations" yaml:"totalInvitations"`
	Accepted              int           `json:"accepted" yaml:"accepted"`
	Responded             int           `json:"responded" yaml:"responded"`
	Errored               int           `json:"errored" yaml:"errored"`
	AcceptanceRate        float64       `json:"acceptanceRate" yaml:"acceptanceRate"`
	ResponseRate          float64       `json:"responseRate" yaml:"responseRate"`
	ErrorRate             float64       `json:"errorRate" yaml:"errorRate"`
	AvgTimeToAccept       float64       `json:"avgTimeToAccept" yaml:"avgTimeToAccept"`
	TimeToAcceptSamples   int           `json:"timeToAcceptSamples" yaml:"timeToAcceptSamples"`
	MalformedTimeToAccept int           `json:"malformedTimeToAccept" yaml:"malformedTimeToAccept"`
	MalformedFollowUps    int           `json:"malformedFollowUps" yaml:"malformedFollowUps"`
	TotalFollowUps        int           `json:"totalFollowUps" yaml:"totalFollowUps"`
	AvgFollowUps          float64       `json:"avgFollowUps" yaml:"avgFollowUps"`
	MaxConnectionsCount   float64       `json:"maxConnectionsCount" yaml:"maxConnectionsCount"`
	HoursSaved            float64       `json:"hoursSaved" yaml:"hoursSaved"`
	MoneySaved            float64       `json:"moneySaved" yaml:"moneySaved"`
	ProjectedRevenue      float64       `json:"projectedRevenue" yaml:"projectedRevenue"`
	ROI                   float64       `json:"roi" yaml:"roi"`
	Funnel                []FunnelStage `json:"funnel" yaml:"funnel"`
}

func computeConnections(records []record.Record, b Business, f Formulas) *ConnectionsMetrics {
	m := &ConnectionsMetrics{TotalInvitations: len(records)}

	var timeSum float64
	for _, r := range records {
		accepted := r.Bool(ConnFieldAccepted)
		if accepted {
			m.Accepted++
			if r.Present(ConnFieldTimeToAccept) {
				if v, ok := r.Float(ConnFieldTimeToAccept); ok && v >= 0 {
					timeSum += v
					m.TimeToAcceptSamples++
				} else {
					m.MalformedTimeToAccept++
				}
			}
		}
		if r.Bool(ConnFieldResponded) {
			m.Responded++
		}
		if r.Present(ConnFieldError) {
			m.Errored++
		}
		// Follow-up counts are whole and non-negative.
		if r.Present(ConnFieldFollowUps) {
			if v, ok := r.Float(ConnFieldFollowUps); ok && v >= 0 && v == math.Trunc(v) {
				m.TotalFollowUps += int(v)
			} else {
				m.MalformedFollowUps++
			}
		}
		if v, ok := r.Float(ConnFieldConnections); ok && v > m.MaxConnectionsCount {
			m.MaxConnectionsCount = v
		}
	}

	switch f[MetricAcceptanceRate] {
	case BySent:
		m.AcceptanceRate = Rate(m.Accepted, m.TotalInvitations-m.Errored)
	default:
		m.AcceptanceRate = Rate(m.Accepted, m.TotalInvitations)
	}
	switch f[MetricResponseRate] {
	case ByTotal:
		m.ResponseRate = Rate(m.Responded, m.TotalInvitations)
	default:
		m.ResponseRate = Rate(m.Responded, m.Accepted)
	}
	m.ErrorRate = Rate(m.Errored, m.TotalInvitations)

	m.AvgTimeToAccept = round2(mean(timeSum, m.TimeToAcceptSamples))
	m.AvgFollowUps = round2(mean(float64(m.TotalFollowUps), m.TotalInvitations))

	m.HoursSaved = b.hoursFor(m.TotalInvitations)
	m.MoneySaved = round2(m.HoursSaved * b.HourlyRate)
	m.ProjectedRevenue = round2(b.revenueFor(m.Responded))
	m.ROI = ROI(m.ProjectedRevenue, b.SystemCost)

	m.Funnel = BuildFunnel(
		Stage{"Invitaciones", m.TotalInvitations},
		Stage{"Aceptadas", m.Accepted},
		Stage{"Respuestas", m.Responded},
	)
	return m
}
