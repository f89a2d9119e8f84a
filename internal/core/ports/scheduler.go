package ports

type SchedulerService interface {
	Start()
	// Stop drops every pending task without running it.
	Stop()

	Now() int64
	AfterNow(at int64) bool
	// ScheduleTaskOnce runs task at the given unix time, or right away if
	// that time has already passed.
	ScheduleTaskOnce(at int64, task func()) error
}
