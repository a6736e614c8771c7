package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

type schoolApi struct {
	svcs *school.Services
}

func registerSchoolAPI(g *echo.Group, svcs *school.Services) {
	api := schoolApi{svcs: svcs}

	g.GET("/announcements/latest", api.latestAnnouncements)

	g.GET("/:kind", api.list)
	g.POST("/:kind", api.create)
	g.PUT("/:kind/:id", api.update)
	g.DELETE("/:kind/:id", api.destroy)
}

func entityKind(ctx echo.Context) (core.EntityKind, error) {
	if kind, ok := core.ParseEntityKind(ctx.Param("kind")); ok {
		return kind, nil
	}
	return 0, errHttpNotFound
}

func respond(ctx echo.Context, out core.Outcome, successCode int) error {
	return ctx.JSON(outcomeStatus(out, successCode), out)
}

func parseID(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errors.Errorf("invalid id %q", s)
	}
	return n, nil
}

// bind decodes the request body into in; a malformed body is a failed Outcome like any invalid input.
func bind(ctx echo.Context, in interface{}) *core.Outcome {
	if err := ctx.Bind(in); err != nil {
		out := core.Failed(core.KindValidation, "Invalid data provided. Please check all required fields.")
		return &out
	}
	return nil
}

// Handlers

func (api *schoolApi) list(ctx echo.Context) error {
	kind, err := entityKind(ctx)
	if err != nil {
		return err
	}
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}

	res, err := api.svcs.List(ctx.Request().Context(), caller, kind, bindListQuery(ctx))
	if err != nil {
		return errors.Wrapf(err, "listing %s", kind.Plural())
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *schoolApi) latestAnnouncements(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	anns, err := api.svcs.LatestAnnouncements(ctx.Request().Context(), caller, queryDate(ctx, "date"))
	if err != nil {
		return errors.Wrap(err, "latest announcements")
	}
	return ctx.JSON(http.StatusOK, anns)
}

func (api *schoolApi) create(ctx echo.Context) error {
	kind, err := entityKind(ctx)
	if err != nil {
		return err
	}
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	c := ctx.Request().Context()

	var out core.Outcome
	switch kind {
	case core.EntitySubject:
		var in school.SubjectInput
		if bad := bind(ctx, &in); bad != nil {
			return respond(ctx, *bad, 0)
		}
		out = api.svcs.Subjects.Create(c, caller, in)
	case core.EntityTeacher:
		var in school.TeacherInput
		if bad := bind(ctx, &in); bad != nil {
			return respond(ctx, *bad, 0)
		}
		out = api.svcs.Teachers.Create(c, caller, in)
	case core.EntityStudent:
		var in school.StudentInput
		if bad := bind(ctx, &in); bad != nil {
			return respond(ctx, *bad, 0)
		}
		out = api.svcs.Students.Create(c, caller, in)
	case core.EntityParent:
		var in school.ParentInput
		if bad := bind(ctx, &in); bad != nil {
			return respond(ctx, *bad, 0)
		}
		out = api.svcs.Parents.Create(c, caller, in)
	case core.EntityClass:
		var in school.ClassInput
		if bad := bind(ctx, &in); bad != nil {
			return respond(ctx, *bad, 0)
		}
		out = api.svcs.Classes.Create(c, caller, in)
	case core.EntityLesson:
		var in school.LessonInput
		if bad := bind(ctx, &in); bad != nil {
			return respond(ctx, *bad, 0)
		}
		out = api.svcs.Lessons.Create(c, caller, in)
	case core.EntityExam:
		var in school.ExamInput
		if bad := bind(ctx, &in); bad != nil {
			return respond(ctx, *bad, 0)
		}
		out = api.svcs.Exams.Create(c, caller, in)
	case core.EntityAssignment:
		var in school.AssignmentInput
		if bad := bind(ctx, &in); bad != nil {
			return respond(ctx, *bad, 0)
		}
		out = api.svcs.Assignments.Create(c, caller, in)
	case core.EntityResult:
		var in school.ResultInput
		if bad := bind(ctx, &in); bad != nil {
			return respond(ctx, *bad, 0)
		}
		out = api.svcs.Results.Create(c, caller, in)
	case core.EntityAttendance:
		var in school.AttendanceInput
		if bad := bind(ctx, &in); bad != nil {
			return respond(ctx, *bad, 0)
		}
		out = api.svcs.Attendances.Create(c, caller, in)
	case core.EntityEvent:
		var in school.EventInput
		if bad := bind(ctx, &in); bad != nil {
			return respond(ctx, *bad, 0)
		}
		out = api.svcs.Events.Create(c, caller, in)
	case core.EntityAnnouncement:
		var in school.AnnouncementInput
		if bad := bind(ctx, &in); bad != nil {
			return respond(ctx, *bad, 0)
		}
		out = api.svcs.Announcements.Create(c, caller, in)
	default:
		return errHttpNotFound
	}
	return respond(ctx, out, http.StatusCreated)
}

func (api *schoolApi) update(ctx echo.Context) error {
	kind, err := entityKind(ctx)
	if err != nil {
		return err
	}
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	c := ctx.Request().Context()
	id := ctx.Param("id")

	var intID int
	if !kind.IdentityBearing() {
		if intID, err = parseID(id); err != nil {
			return respond(ctx, core.Failed(core.KindValidation, "Invalid "+kind.String()+" id."), 0)
		}
	}

	var out core.Outcome
	switch kind {
	case core.EntitySubject:
		var in school.SubjectInput
		if bad := bind(ctx, &in); bad != nil {
			return respond(ctx, *bad, 0)
		}
		out = api.svcs.Subjects.Update(c, caller, intID, in)
	case core.EntityTeacher:
		var in school.TeacherInput
		if bad := bind(ctx, &in); bad != nil {
			return respond(ctx, *bad, 0)
		}
		out = api.svcs.Teachers.Update(c, caller, id, in)
	case core.EntityStudent:
		var in school.StudentInput
		if bad := bind(ctx, &in); bad != nil {
			return respond(ctx, *bad, 0)
		}
		out = api.svcs.Students.Update(c, caller, id, in)
	case core.EntityParent:
		var in school.ParentInput
		if bad := bind(ctx, &in); bad != nil {
			return respond(ctx, *bad, 0)
		}
		out = api.svcs.Parents.Update(c, caller, id, in)
	case core.EntityClass:
		var in school.ClassInput
		if bad := bind(ctx, &in); bad != nil {
			return respond(ctx, *bad, 0)
		}
		out = api.svcs.Classes.Update(c, caller, intID, in)
	case core.EntityLesson:
		var in school.LessonInput
		if bad := bind(ctx, &in); bad != nil {
			return respond(ctx, *bad, 0)
		}
		out = api.svcs.Lessons.Update(c, caller, intID, in)
	case core.EntityExam:
		var in school.ExamInput
		if bad := bind(ctx, &in); bad != nil {
			return respond(ctx, *bad, 0)
		}
		out = api.svcs.Exams.Update(c, caller, intID, in)
	case core.EntityAssignment:
		var in school.AssignmentInput
		if bad := bind(ctx, &in); bad != nil {
			return respond(ctx, *bad, 0)
		}
		out = api.svcs.Assignments.Update(c, caller, intID, in)
	case core.EntityResult:
		var in school.ResultInput
		if bad := bind(ctx, &in); bad != nil {
			return respond(ctx, *bad, 0)
		}
		out = api.svcs.Results.Update(c, caller, intID, in)
	case core.EntityAttendance:
		return errMethodNotAllowed
	case core.EntityEvent:
		var in school.EventInput
		if bad := bind(ctx, &in); bad != nil {
			return respond(ctx, *bad, 0)
		}
		out = api.svcs.Events.Update(c, caller, intID, in)
	case core.EntityAnnouncement:
		var in school.AnnouncementInput
		if bad := bind(ctx, &in); bad != nil {
			return respond(ctx, *bad, 0)
		}
		out = api.svcs.Announcements.Update(c, caller, intID, in)
	default:
		return errHttpNotFound
	}
	return respond(ctx, out, http.StatusOK)
}

func (api *schoolApi) destroy(ctx echo.Context) error {
	kind, err := entityKind(ctx)
	if err != nil {
		return err
	}
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	out := api.svcs.Delete(ctx.Request().Context(), caller, kind, ctx.Param("id"))
	return respond(ctx, out, http.StatusOK)
}
