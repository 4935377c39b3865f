package router

import (
	"github.com/gin-gonic/gin"

	"github.com/nmamani/colegio-api/internal/handler"
	"github.com/nmamani/colegio-api/internal/middleware"
	"github.com/nmamani/colegio-api/internal/models"
	"github.com/nmamani/colegio-api/internal/service"
)

// Handlers groups the HTTP handlers wired into the router.
type Handlers struct {
	Auth       *handler.AuthHandler
	Users      *handler.UserHandler
	Periods    *handler.PeriodHandler
	Courses    *handler.CourseHandler
	Subjects   *handler.SubjectHandler
	Teachers   *handler.TeacherHandler
	Students   *handler.StudentHandler
	Schedules  *handler.ScheduleHandler
	Teaching   *handler.TeachingHandler
	Attendance *handler.AttendanceHandler
	Exports    *handler.ExportHandler
	Metrics    *handler.MetricsHandler
}

// Register mounts all API routes under the prefix. Admin routes require the
// ADMIN role; teacher-facing routes accept both roles, with self-scoping
// enforced on teacher-owned resources.
func Register(r *gin.Engine, prefix string, auth *service.AuthService, h Handlers) {
	api := r.Group(prefix)

	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)
	api.POST("/auth/logout", h.Auth.Logout)

	secured := api.Group("")
	secured.Use(middleware.JWT(auth))

	secured.GET("/auth/me", h.Auth.Me)
	secured.PUT("/auth/password", h.Auth.ChangePassword)

	admin := secured.Group("")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))

	admin.GET("/users", h.Users.List)
	admin.POST("/users", h.Users.Create)
	admin.GET("/users/:id", h.Users.Get)
	admin.PUT("/users/:id", h.Users.Update)

	admin.POST("/periods", h.Periods.Create)
	admin.PUT("/periods/:id", h.Periods.Update)
	admin.POST("/periods/:id/activate", h.Periods.Activate)

	admin.POST("/courses", h.Courses.Create)
	admin.PUT("/courses/:id", h.Courses.Update)
	admin.DELETE("/courses/:id", h.Courses.Delete)

	admin.POST("/subjects", h.Subjects.Create)
	admin.PUT("/subjects/:id", h.Subjects.Update)
	admin.DELETE("/subjects/:id", h.Subjects.Delete)

	admin.POST("/teachers", h.Teachers.Create)
	admin.PUT("/teachers/:id", h.Teachers.Update)
	admin.DELETE("/teachers/:id", h.Teachers.Deactivate)

	admin.POST("/students", h.Students.Create)
	admin.PUT("/students/:id", h.Students.Update)
	admin.DELETE("/students/:id", h.Students.Delete)

	admin.POST("/schedules", h.Schedules.Create)
	admin.PUT("/schedules/:id", h.Schedules.Update)
	admin.DELETE("/schedules/:id", h.Schedules.Delete)

	admin.POST("/assignments", h.Teaching.Assign)

	staff := secured.Group("")
	staff.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher))

	staff.GET("/periods", h.Periods.List)
	staff.GET("/periods/active", h.Periods.GetActive)
	staff.GET("/periods/:id", h.Periods.Get)

	staff.GET("/courses", h.Courses.List)
	staff.GET("/courses/:id", h.Courses.Get)
	staff.GET("/courses/:id/students", h.Students.ListByCourse)
	staff.GET("/courses/:id/timetable", h.Schedules.CourseTimetable)
	staff.GET("/courses/:id/timetable/export", h.Exports.CourseTimetable)
	staff.GET("/courses/:id/attendance", h.Attendance.Sheet)
	staff.GET("/courses/:id/attendance/export", h.Exports.AttendanceSheet)

	staff.GET("/subjects", h.Subjects.List)
	staff.GET("/subjects/:id", h.Subjects.Get)

	staff.GET("/teachers", h.Teachers.List)
	staff.GET("/teachers/:id", h.Teachers.Get)

	staff.GET("/students", h.Students.List)
	staff.GET("/students/:id", h.Students.Get)
	staff.GET("/students/:id/attendance", h.Attendance.StudentHistory)

	staff.GET("/schedules", h.Schedules.List)
	staff.GET("/schedules/:id", h.Schedules.Get)

	staff.POST("/attendance", h.Attendance.RegisterSheet)

	teacherScoped := secured.Group("/teachers/:id")
	teacherScoped.Use(middleware.RequireTeacherSelf())
	teacherScoped.GET("/timetable", h.Schedules.TeacherTimetable)
	teacherScoped.GET("/assignments", h.Teaching.ListByTeacher)
	teacherScoped.DELETE("/assignments/:aid", h.Teaching.Remove)
}
