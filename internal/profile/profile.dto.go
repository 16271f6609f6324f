package profile

type UpdateBodyMetricsRequest struct {
	Weight           string `json:"weight"`
	ExerciseDuration string `json:"exerciseDuration"`
}

type UpdateAwakeWindowRequest struct {
	FirstNotificationTime string `json:"firstNotificationTime"` // HH:MM
	LastNotificationTime  string `json:"lastNotificationTime"`  // HH:MM
	TimeInterval          int    `json:"timeInterval"`
}

type CalculateRequest struct {
	Weight           string `json:"weight"`
	ExerciseDuration string `json:"exerciseDuration"`
}

type CalculateResponse struct {
	WaterAmountPerDay int `json:"waterAmountPerDay"`
}
