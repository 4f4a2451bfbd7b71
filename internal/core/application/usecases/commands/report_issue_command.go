package commands

import (
	"errors"
	"strings"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/tracking"
	"dispatch/internal/pkg/guard"
)

var ErrReportIssueCommandIsNotConstructed = errors.New(
	"ReportIssueCommand must be created via NewReportIssueCommand constructor",
)

// ReportIssueCommand records a problem a partner hit while delivering.
type ReportIssueCommand struct { //nolint:recvcheck //using for validation
	partnerID   kernel.UUID
	orderID     kernel.UUID
	issueType   string
	description string

	guard guard.ConstructorGuard
}

// NewReportIssueCommand validates the identifiers and requires an issue type.
func NewReportIssueCommand(partnerID, orderID kernel.UUID, issueType, description string) (ReportIssueCommand, error) {
	var typeErr error
	if strings.TrimSpace(issueType) == "" {
		typeErr = tracking.ErrIssueTypeIsRequired
	}
	if err := errors.Join(partnerID.Validate(), orderID.Validate(), typeErr); err != nil {
		return ReportIssueCommand{}, err
	}

	return ReportIssueCommand{
		partnerID:   partnerID,
		orderID:     orderID,
		issueType:   issueType,
		description: description,
		guard:       guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the command was created through the constructor.
func (c ReportIssueCommand) Validate() error {
	return c.guard.Validate(ErrReportIssueCommandIsNotConstructed)
}

// PartnerID returns the reporting partner.
func (c ReportIssueCommand) PartnerID() kernel.UUID {
	return c.partnerID
}

// OrderID returns the affected order.
func (c ReportIssueCommand) OrderID() kernel.UUID {
	return c.orderID
}

// IssueType returns the short issue category, e.g. "vehicle_breakdown".
func (c ReportIssueCommand) IssueType() string {
	return c.issueType
}

// Description returns the free-text details.
func (c ReportIssueCommand) Description() string {
	return c.description
}
