package products

import (
	"fmt"

	"github.com/meredith/compass/internal/answers"
	"github.com/meredith/compass/internal/hub"
	"github.com/meredith/compass/internal/models"
)

// AppointmentVersion is stamped on every published appointment contract.
const AppointmentVersion = "1.0"

// PublishAppointment turns the scheduler module's answers into an
// appointment contract. The scheduler unlocks only after the cost
// planner; the check goes through the hub.
func PublishAppointment(h *hub.Hub, ans answers.Set) error {
	if !h.IsComplete(CostPlanner) {
		return fmt.Errorf("scheduler: cost planner is not complete")
	}

	preferredTime, ok := ans.String("preferred_time")
	if !ok {
		return fmt.Errorf("scheduler: no preferred time answered")
	}
	contactMethod, _ := ans.String("contact_method")
	topics, _ := ans.List("discussion_topics")

	topicList := make([]any, len(topics))
	for i, topic := range topics {
		topicList[i] = topic
	}

	return h.Publish(Scheduler, &models.Contract{
		ProductID: Scheduler,
		Status:    models.StatusComplete,
		Version:   AppointmentVersion,
		Payload: map[string]any{
			"preferred_time":    preferredTime,
			"contact_method":    contactMethod,
			"discussion_topics": topicList,
			"confirmed":         false,
		},
	})
}
