package enums

import "fmt"

// NotificationType categorizes in-app notification rows.
type NotificationType string

const (
	NotificationRequestSubmitted     NotificationType = "request_submitted"
	NotificationRequestStatusChanged NotificationType = "request_status_changed"
	NotificationRequestLineEdited    NotificationType = "request_line_edited"
	NotificationRequestCommented     NotificationType = "request_commented"
)

var validNotificationTypes = []NotificationType{
	NotificationRequestSubmitted,
	NotificationRequestStatusChanged,
	NotificationRequestLineEdited,
	NotificationRequestCommented,
}

// String implements fmt.Stringer.
func (n NotificationType) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
