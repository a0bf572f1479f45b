package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, tasks *TaskHandler, stages *StageHandler) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Tasks
		r.Get("/tasks", tasks.listTasks)
		r.Post("/tasks", tasks.createTask)
		r.Get("/tasks/{id}", tasks.getTask)
		r.Patch("/tasks/{id}", tasks.updateTask)
		r.Delete("/tasks/{id}", tasks.deleteTask)
		r.Post("/tasks/{id}/archive", tasks.archiveTask)
		r.Post("/tasks/{id}/unarchive", tasks.unarchiveTask)
		r.Get("/tasks/{id}/history", tasks.taskHistory)

		// Stages
		r.Get("/stages", stages.listStages)
		r.Post("/stages", stages.createStage)
		r.Get("/stages/{id}", stages.getStage)
		r.Put("/stages/{id}", stages.updateStage)
		r.Delete("/stages/{id}", stages.deleteStage)
	})
}
