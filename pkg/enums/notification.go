package enums

// NotificationType categorizes in-app notification rows.
type NotificationType string

const (
	NotificationTypeOrderCreated  NotificationType = "order_created"
	NotificationTypePaymentUpdate NotificationType = "payment_update"
	NotificationTypeOrderProgress NotificationType = "order_progress"
	NotificationTypeSystem        NotificationType = "system"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderCreated,
	NotificationTypePaymentUpdate,
	NotificationTypeOrderProgress,
	NotificationTypeSystem,
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
