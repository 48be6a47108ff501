package telegram

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/queueless/booking/internal/model"
)

const (
	actionApprove = "approve"
	actionReject  = "reject"
)

var errBadCallback = errors.New("invalid callback data format")

// callbackData собирает данные кнопки: "approve:<uuid>"
func callbackData(action string, id uuid.UUID) string {
	return action + ":" + id.String()
}

// parseCallback разбирает "approve:<uuid>" / "reject:<uuid>" в целевой статус и ID записи
func parseCallback(data string) (model.AppointmentStatus, uuid.UUID, error) {
	action, rawID, ok := strings.Cut(data, ":")
	if !ok {
		return "", uuid.Nil, errBadCallback
	}

	var status model.AppointmentStatus
	switch action {
	case actionApprove:
		status = model.AppointmentStatusApproved
	case actionReject:
		status = model.AppointmentStatusRejected
	default:
		return "", uuid.Nil, fmt.Errorf("%w: unknown action %q", errBadCallback, action)
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("%w: %v", errBadCallback, err)
	}
	return status, id, nil
}

// decisionKeyboard кнопки решения по записи в статусе Pending
func decisionKeyboard(id uuid.UUID) *keyboardBuilder {
	return newKeyboard().Row(
		button("✅ Approve", callbackData(actionApprove, id)),
		button("❌ Reject", callbackData(actionReject, id)),
	)
}
