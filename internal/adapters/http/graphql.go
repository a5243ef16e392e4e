package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/barterbay/internal/core/domain"
	"github.com/samirrijal/barterbay/internal/core/usecases"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	coordinateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coordinate",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bounds",
		Fields: graphql.Fields{
			"north": &graphql.Field{Type: graphql.Float},
			"south": &graphql.Field{Type: graphql.Float},
			"east":  &graphql.Field{Type: graphql.Float},
			"west":  &graphql.Field{Type: graphql.Float},
		},
	})

	listingType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Listing",
		Fields: graphql.Fields{
			"id":              &graphql.Field{Type: graphql.String},
			"title":           &graphql.Field{Type: graphql.String},
			"description":     &graphql.Field{Type: graphql.String},
			"category":        &graphql.Field{Type: graphql.String},
			"condition":       &graphql.Field{Type: graphql.String},
			"estimated_value": &graphql.Field{Type: graphql.Float},
			"owner_id":        &graphql.Field{Type: graphql.String},
			"owner_rating":    &graphql.Field{Type: graphql.Float},
			"coordinates":     &graphql.Field{Type: coordinateType},
			"looking_for":     &graphql.Field{Type: graphql.NewList(graphql.String)},
			"distance_miles":  &graphql.Field{Type: graphql.Float},
			"created_at":      &graphql.Field{Type: graphql.DateTime},
		},
	})

	placeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Place",
		Fields: graphql.Fields{
			"query":        &graphql.Field{Type: graphql.String},
			"display_name": &graphql.Field{Type: graphql.String},
			"coordinates":  &graphql.Field{Type: coordinateType},
		},
	})

	viewportType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Viewport",
		Fields: graphql.Fields{
			"center": &graphql.Field{Type: coordinateType},
			"zoom":   &graphql.Field{Type: graphql.Int},
			"bounds": &graphql.Field{Type: boundsType},
		},
	})

	projectionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Projection",
		Fields: graphql.Fields{
			"listing": &graphql.Field{Type: listingType},
			"x":       &graphql.Field{Type: graphql.Float},
			"y":       &graphql.Field{Type: graphql.Float},
			"color":   &graphql.Field{Type: graphql.String},
		},
	})

	clusterType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Cluster",
		Fields: graphql.Fields{
			"geohash":     &graphql.Field{Type: graphql.String},
			"center":      &graphql.Field{Type: coordinateType},
			"x":           &graphql.Field{Type: graphql.Float},
			"y":           &graphql.Field{Type: graphql.Float},
			"count":       &graphql.Field{Type: graphql.Int},
			"listing_ids": &graphql.Field{Type: graphql.NewList(graphql.String)},
			"min_value":   &graphql.Field{Type: graphql.Float},
			"max_value":   &graphql.Field{Type: graphql.Float},
		},
	})

	listingPageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ListingPage",
		Fields: graphql.Fields{
			"items": &graphql.Field{Type: graphql.NewList(listingType)},
			"total": &graphql.Field{Type: graphql.Int},
		},
	})

	searchResultType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SearchResult",
		Fields: graphql.Fields{
			"listings":       &graphql.Field{Type: graphql.NewList(listingType)},
			"total":          &graphql.Field{Type: graphql.Int},
			"user_location":  &graphql.Field{Type: coordinateType},
			"place":          &graphql.Field{Type: placeType},
			"location_error": &graphql.Field{Type: graphql.String},
		},
	})

	mapViewType := graphql.NewObject(graphql.ObjectConfig{
		Name: "MapView",
		Fields: graphql.Fields{
			"viewport":       &graphql.Field{Type: viewportType},
			"matched":        &graphql.Field{Type: graphql.Int},
			"projections":    &graphql.Field{Type: graphql.NewList(projectionType)},
			"clusters":       &graphql.Field{Type: graphql.NewList(clusterType)},
			"user_location":  &graphql.Field{Type: coordinateType},
			"place":          &graphql.Field{Type: placeType},
			"location_error": &graphql.Field{Type: graphql.String},
		},
	})

	filterInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "FilterInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"text":           &graphql.InputObjectFieldConfig{Type: graphql.String},
			"location":       &graphql.InputObjectFieldConfig{Type: graphql.String},
			"categories":     &graphql.InputObjectFieldConfig{Type: graphql.NewList(graphql.String)},
			"conditions":     &graphql.InputObjectFieldConfig{Type: graphql.NewList(graphql.String)},
			"ratings":        &graphql.InputObjectFieldConfig{Type: graphql.NewList(graphql.String)},
			"min_value":      &graphql.InputObjectFieldConfig{Type: graphql.Float},
			"max_value":      &graphql.InputObjectFieldConfig{Type: graphql.Float},
			"distance_miles": &graphql.InputObjectFieldConfig{Type: graphql.Float},
			"worldwide":      &graphql.InputObjectFieldConfig{Type: graphql.Boolean},
			"lat":            &graphql.InputObjectFieldConfig{Type: graphql.Float},
			"lng":            &graphql.InputObjectFieldConfig{Type: graphql.Float},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"listing": &graphql.Field{
				Type:        listingType,
				Description: "Get a listing by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Listings.GetByID(p.Context, p.Args["id"].(string))
				},
			},
			"listings": &graphql.Field{
				Type:        listingPageType,
				Description: "Page through the listing catalogue",
				Args: graphql.FieldConfigArgument{
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					items, total, err := deps.Listings.List(p.Context, p.Args["limit"].(int), p.Args["offset"].(int))
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{"items": items, "total": total}, nil
				},
			},
			"search": &graphql.Field{
				Type:        searchResultType,
				Description: "Filter listings by facets, text and distance",
				Args: graphql.FieldConfigArgument{
					"filter": &graphql.ArgumentConfig{Type: filterInput},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					f, loc, err := filterFromArgs(p.Args["filter"])
					if err != nil {
						return nil, err
					}
					var place *domain.Place
					var locErr string
					if loc == nil {
						if place, locErr = locate(p.Context, deps, f.LocationQuery); place != nil {
							c := place.Coordinates
							loc = &c
						}
					}
					res := deps.Search.Search(p.Context, usecases.SearchRequest{Filter: f, UserLocation: loc})
					return withLocation(map[string]interface{}{
						"listings": res.Listings,
						"total":    res.Total,
					}, res.UserLocation, place, locErr), nil
				},
			},
			"mapView": &graphql.Field{
				Type:        mapViewType,
				Description: "Filter listings and place the visible ones on a map viewport",
				Args: graphql.FieldConfigArgument{
					"filter":     &graphql.ArgumentConfig{Type: filterInput},
					"center_lat": &graphql.ArgumentConfig{Type: graphql.Float},
					"center_lng": &graphql.ArgumentConfig{Type: graphql.Float},
					"zoom":       &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"width":      &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 0.0},
					"height":     &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 0.0},
					"cluster":    &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					f, loc, err := filterFromArgs(p.Args["filter"])
					if err != nil {
						return nil, err
					}
					var place *domain.Place
					var locErr string
					if loc == nil {
						if place, locErr = locate(p.Context, deps, f.LocationQuery); place != nil {
							c := place.Coordinates
							loc = &c
						}
					}

					center := deps.Search.MapConfig().DefaultCenter
					if loc != nil {
						center = *loc
					}
					if lat, ok := p.Args["center_lat"].(float64); ok {
						lng, ok := p.Args["center_lng"].(float64)
						if !ok {
							return nil, fmt.Errorf("center_lat and center_lng must be given together")
						}
						center = domain.Coordinate{Lat: lat, Lng: lng}
						if !center.Valid() {
							return nil, domain.ErrInvalidCoordinate
						}
					}

					res := deps.Search.MapView(p.Context, usecases.MapRequest{
						SearchRequest: usecases.SearchRequest{Filter: f, UserLocation: loc},
						Center:        center,
						Zoom:          p.Args["zoom"].(int),
						Width:         p.Args["width"].(float64),
						Height:        p.Args["height"].(float64),
						Cluster:       p.Args["cluster"].(bool),
					})
					return withLocation(map[string]interface{}{
						"viewport":    res.Viewport,
						"matched":     res.Matched,
						"projections": res.Projections,
						"clusters":    res.Clusters,
					}, loc, place, locErr), nil
				},
			},
			"geocode": &graphql.Field{
				Type:        placeType,
				Description: "Resolve location text to a coordinate",
				Args: graphql.FieldConfigArgument{
					"query": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Geocode == nil {
						return nil, fmt.Errorf("geocoding not configured")
					}
					return deps.Geocode.Resolve(p.Context, p.Args["query"].(string))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// filterFromArgs converts a FilterInput argument into a filter and optional user location.
func filterFromArgs(arg interface{}) (domain.FilterConfig, *domain.Coordinate, error) {
	f := domain.DefaultFilterConfig()
	in, ok := arg.(map[string]interface{})
	if !ok {
		return f, nil, nil
	}

	if v, ok := in["text"].(string); ok {
		f.TextQuery = v
	}
	if v, ok := in["location"].(string); ok {
		f.LocationQuery = v
	}
	f.Categories = domain.NewSet(stringList(in["categories"])...)
	f.Conditions = domain.NewSet(stringList(in["conditions"])...)
	f.Ratings = domain.NewSet(stringList(in["ratings"])...)
	if v, ok := in["min_value"].(float64); ok {
		f.MinValue = v
	}
	if v, ok := in["max_value"].(float64); ok {
		f.MaxValue = v
	}
	if v, ok := in["distance_miles"].(float64); ok {
		f.DistanceMiles = v
	}
	if v, ok := in["worldwide"].(bool); ok {
		f.IncludeWorldwide = v
	}
	if err := validateText(f); err != nil {
		return f, nil, err
	}

	lat, hasLat := in["lat"].(float64)
	lng, hasLng := in["lng"].(float64)
	if hasLat != hasLng {
		return f, nil, fmt.Errorf("lat and lng must be given together")
	}
	if !hasLat {
		return f, nil, nil
	}
	loc := domain.Coordinate{Lat: lat, Lng: lng}
	if !loc.Valid() {
		return f, nil, domain.ErrInvalidCoordinate
	}
	return f, &loc, nil
}

// withLocation adds the resolved location fields, leaving absent ones unset.
func withLocation(out map[string]interface{}, loc *domain.Coordinate, place *domain.Place, locErr string) map[string]interface{} {
	if loc != nil {
		out["user_location"] = loc
	}
	if place != nil {
		out["place"] = place
	}
	if locErr != "" {
		out["location_error"] = locErr
	}
	return out
}

func stringList(v interface{}) []string {
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
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
		if req.Query == "" {
			return errBadRequest(c, "query is required")
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
