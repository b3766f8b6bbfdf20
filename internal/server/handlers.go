package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
	g "maragu.dev/gomponents"

	"github.com/nfrund/msgtopology/internal/topology"
	"github.com/nfrund/msgtopology/internal/view"
)

// SendRequest is the body of POST /send.
type SendRequest struct {
	Channel string          `json:"channel" validate:"required"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload" validate:"required"`
}

// SendResponse confirms a published message.
type SendResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Channel string `json:"channel"`
	Topic   string `json:"topic"`
}

func (s *Server) getTopology(c echo.Context) error {
	local := s.app.LocalTopology()
	if local == nil {
		return &topology.Error{Kind: topology.ErrorNotInitialized, Message: "no topology registered"}
	}
	return c.JSON(http.StatusOK, local)
}

func (s *Server) getServices(c echo.Context) error {
	peers, err := s.app.Peers()
	if err != nil {
		return err
	}
	if peers == nil {
		peers = []string{}
	}
	return c.JSON(http.StatusOK, peers)
}

func (s *Server) getStored(c echo.Context) error {
	stored, err := s.app.StoredTopologies()
	if err != nil {
		return err
	}
	if stored == nil {
		stored = []*topology.Topology{}
	}
	return c.JSON(http.StatusOK, stored)
}

func (s *Server) getSchema(c echo.Context) error {
	channel := c.QueryParam("channel")
	res, err := s.app.Schema(channel, c.QueryParam("direction"))
	if err != nil {
		return err
	}
	if !res.Resolved {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "Schema not found for channel: " + channel})
	}
	return c.JSON(http.StatusOK, res.Schema)
}

func (s *Server) getExample(c echo.Context) error {
	example, err := s.app.Example(c.QueryParam("channel"), c.QueryParam("direction"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, example)
}

func (s *Server) postSend(c echo.Context) error {
	var req SendRequest
	if err := c.Bind(&req); err != nil {
		return &topology.Error{Kind: topology.ErrorInvalidInput, Message: "malformed request body", Cause: err}
	}
	if err := c.Validate(&req); err != nil || string(req.Payload) == "null" {
		return &topology.Error{Kind: topology.ErrorInvalidInput, Message: "Missing channel or payload"}
	}

	// a JSON string is sent as its text, anything else as the raw JSON
	var payload any = req.Payload
	var text string
	if json.Unmarshal(req.Payload, &text) == nil {
		payload = text
	}

	topic, err := s.app.Send(c.Request().Context(), req.Channel, payload)
	if err != nil {
		return err
	}
	if req.Topic != "" {
		topic = req.Topic
	}

	return c.JSON(http.StatusOK, SendResponse{
		Success: true,
		Message: "Message sent to " + req.Channel,
		Channel: req.Channel,
		Topic:   topic,
	})
}

func (s *Server) getView(c echo.Context) error {
	auto, err := autoDiscover(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.app.AggregatedView(c.Request().Context(), auto))
}

func (s *Server) getDiagram(c echo.Context) error {
	auto, err := autoDiscover(c)
	if err != nil {
		return err
	}
	return c.String(http.StatusOK, s.app.AggregatedView(c.Request().Context(), auto).Diagram)
}

func (s *Server) getViewer(c echo.Context) error {
	auto, err := autoDiscover(c)
	if err != nil {
		return err
	}
	fragment := ViewerPath + "/diagram?" + url.Values{"auto": {strconv.FormatBool(auto)}}.Encode()
	return render(c, http.StatusOK, view.Page(s.app.AggregatedView(c.Request().Context(), auto), fragment))
}

func (s *Server) getViewerDiagram(c echo.Context) error {
	auto, err := autoDiscover(c)
	if err != nil {
		return err
	}
	return render(c, http.StatusOK, view.Diagram(s.app.AggregatedView(c.Request().Context(), auto).Diagram))
}

// autoDiscover reads the auto query parameter, which defaults to true.
func autoDiscover(c echo.Context) (bool, error) {
	auto := true
	if err := echo.QueryParamsBinder(c).Bool("auto", &auto).BindError(); err != nil {
		return false, &topology.Error{Kind: topology.ErrorInvalidInput, Message: "auto must be a boolean", Cause: err}
	}
	return auto, nil
}

// render writes a gomponents node as an HTML response.
func render(c echo.Context, code int, node g.Node) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return node.Render(c.Response())
}
