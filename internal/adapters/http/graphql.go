package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/pinpoint/internal/core/domain"
)

// buildSchema creates the read-only GraphQL schema over sessions, basemaps
// and the confirmation archive.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	coordinateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coordinate",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
		},
	})

	sizeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Size",
		Fields: graphql.Fields{
			"w": &graphql.Field{Type: graphql.Int},
			"h": &graphql.Field{Type: graphql.Int},
		},
	})

	viewportType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Viewport",
		Fields: graphql.Fields{
			"center": &graphql.Field{Type: coordinateType},
			"zoom":   &graphql.Field{Type: graphql.Int},
			"cursor": &graphql.Field{Type: coordinateType},
			"size":   &graphql.Field{Type: sizeType},
		},
	})

	sessionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Session",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"marker":     &graphql.Field{Type: coordinateType},
			"source":     &graphql.Field{Type: graphql.String},
			"viewport":   &graphql.Field{Type: viewportType},
			"scale":      &graphql.Field{Type: graphql.String},
			"resolution": &graphql.Field{Type: graphql.Float},
			"basemap":    &graphql.Field{Type: graphql.String},
			"overlay":    &graphql.Field{Type: graphql.String},
			"query":      &graphql.Field{Type: graphql.String},
			"form_key":   &graphql.Field{Type: graphql.String},
		},
	})

	basemapType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Basemap",
		Fields: graphql.Fields{
			"variant":     &graphql.Field{Type: graphql.String},
			"label":       &graphql.Field{Type: graphql.String},
			"attribution": &graphql.Field{Type: graphql.String},
			"default":     &graphql.Field{Type: graphql.Boolean},
		},
	})

	confirmationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Confirmation",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.String},
			"session_id":   &graphql.Field{Type: graphql.String},
			"form_key":     &graphql.Field{Type: graphql.String},
			"source":       &graphql.Field{Type: graphql.String},
			"confirmed_at": &graphql.Field{Type: graphql.DateTime},
			"houseNumber":  &graphql.Field{Type: graphql.String},
			"streetName":   &graphql.Field{Type: graphql.String},
			"areaName":     &graphql.Field{Type: graphql.String},
			"lga":          &graphql.Field{Type: graphql.String},
			"state":        &graphql.Field{Type: graphql.String},
			"latitude":     &graphql.Field{Type: graphql.Float},
			"longitude":    &graphql.Field{Type: graphql.Float},
			"step":         &graphql.Field{Type: graphql.Int},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"session": &graphql.Field{
				Type:        sessionType,
				Description: "Current state of an open picker session",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					s, err := deps.Picker.Get(p.Args["id"].(string))
					if err != nil {
						return nil, err
					}
					return s.Snapshot(p.Context)
				},
			},
			"basemaps": &graphql.Field{
				Type:        graphql.NewList(basemapType),
				Description: "Selectable basemap variants",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Picker.Basemaps(), nil
				},
			},
			"confirmations": &graphql.Field{
				Type:        graphql.NewList(confirmationType),
				Description: "Archived confirmations, newest first, optionally for one session",
				Args: graphql.FieldConfigArgument{
					"session_id": &graphql.ArgumentConfig{Type: graphql.String},
					"limit":      &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Confirmations == nil {
						return nil, nil
					}
					var (
						list []domain.Confirmation
						err  error
					)
					if sid, ok := p.Args["session_id"].(string); ok && sid != "" {
						list, err = deps.Confirmations.ListBySession(p.Context, sid)
					} else {
						limit := p.Args["limit"].(int)
						if limit <= 0 || limit > 200 {
							limit = 20
						}
						list, err = deps.Confirmations.ListRecent(p.Context, 0, limit)
					}
					if err != nil {
						return nil, err
					}
					out := make([]map[string]interface{}, 0, len(list))
					for _, c := range list {
						out = append(out, confirmationFields(c))
					}
					return out, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// confirmationFields flattens the nested handoff for the GraphQL resolver.
func confirmationFields(c domain.Confirmation) map[string]interface{} {
	h := c.Handoff
	return map[string]interface{}{
		"id":           c.ID,
		"session_id":   c.SessionID,
		"form_key":     c.FormKey,
		"source":       c.Source,
		"confirmed_at": c.ConfirmedAt,
		"houseNumber":  h.HouseNumber,
		"streetName":   h.StreetName,
		"areaName":     h.AreaName,
		"lga":          h.LGA,
		"state":        h.State,
		"latitude":     h.Latitude,
		"longitude":    h.Longitude,
		"step":         h.Step,
	}
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
