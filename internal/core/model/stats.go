package model

// DailyStats aggregates the entries of one calendar day. Hours are decimal hours.
type DailyStats struct {
	Date        string  `json:"date"`
	TotalWorked float64 `json:"totalWorked"`
	TotalPaused float64 `json:"totalPaused"`
	Entries     int     `json:"entries"`
}

// DayHours is one day of a weekly breakdown.
type DayHours struct {
	Date    string  `json:"date"`
	DayName string  `json:"dayName"`
	Hours   float64 `json:"hours"`
}

// WeeklyStats aggregates a Monday-start week.
type WeeklyStats struct {
	TotalHours     float64    `json:"totalHours"`
	AverageDaily   float64    `json:"averageDaily"`
	DaysWorked     int        `json:"daysWorked"`
	DailyBreakdown []DayHours `json:"dailyBreakdown"`
}

// WeekHours is one week bucket of a monthly breakdown.
type WeekHours struct {
	WeekNumber int     `json:"weekNumber"`
	Hours      float64 `json:"hours"`
}

// MonthlyStats aggregates a calendar month.
type MonthlyStats struct {
	TotalHours      float64     `json:"totalHours"`
	AverageDaily    float64     `json:"averageDaily"`
	DaysWorked      int         `json:"daysWorked"`
	WeeklyBreakdown []WeekHours `json:"weeklyBreakdown"`
}

// TimeDistribution splits a set of entries into work and pause hours.
type TimeDistribution struct {
	WorkHours  float64 `json:"workHours"`
	PauseHours float64 `json:"pauseHours"`
	TotalHours float64 `json:"totalHours"`
}
