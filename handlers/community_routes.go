package handlers

import (
	"github.com/gofiber/fiber/v2"

	"vibedojo-ledger/logger"
	"vibedojo-ledger/middleware"
	"vibedojo-ledger/services"
)

func SetupCommunityRoutes(app *fiber.App, log *logger.Logger, community *services.CommunityService) {
	secured := middleware.UserContextMiddleware(log)

	app.Post("/posts", secured, func(c *fiber.Ctx) error {
		var in services.PostInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "Invalid request body")
		}
		post, award, err := community.CreatePost(c.UserContext(), currentUserID(c), in)
		if err != nil {
			return respondError(c, "failed to create post", err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"post": post, "award": award})
	})

	app.Post("/posts/:id/comments", secured, func(c *fiber.Ctx) error {
		var req struct {
			Body string `json:"body"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		comment, award, err := community.CreateComment(c.UserContext(), currentUserID(c), c.Params("id"), req.Body)
		if err != nil {
			return respondError(c, "failed to create comment", err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"comment": comment, "award": award})
	})

	app.Post("/posts/:id/like", secured, func(c *fiber.Ctx) error {
		res, err := community.LikePost(c.UserContext(), currentUserID(c), c.Params("id"))
		if err != nil {
			return respondError(c, "failed to like post", err)
		}
		return c.JSON(res)
	})

	app.Delete("/posts/:id/like", secured, func(c *fiber.Ctx) error {
		removed, err := community.UnlikePost(c.UserContext(), currentUserID(c), c.Params("id"))
		if err != nil {
			return respondError(c, "failed to unlike post", err)
		}
		return c.JSON(fiber.Map{"removed": removed})
	})

	app.Post("/posts/:id/accept/:replyId", secured, func(c *fiber.Ctx) error {
		res, err := community.AcceptAnswer(c.UserContext(), currentUserID(c), c.Params("id"), c.Params("replyId"))
		if err != nil {
			return respondError(c, "failed to accept answer", err)
		}
		return c.JSON(res)
	})

	app.Delete("/posts/:id/accept", secured, func(c *fiber.Ctx) error {
		if err := community.UnacceptAnswer(c.UserContext(), currentUserID(c), c.Params("id")); err != nil {
			return respondError(c, "failed to unaccept answer", err)
		}
		return c.JSON(fiber.Map{"message": "OK"})
	})
}
