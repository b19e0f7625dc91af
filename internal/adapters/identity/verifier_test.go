package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	. "github.com/smartystreets/goconvey/convey"
)

func TestVerifier(t *testing.T) {
	Convey("Given a verifier with issuer and audience", t, func() {
		ctx := context.Background()
		now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		v := NewVerifier("s3cret", WithIssuer("kart-auth"), WithAudience("kartboard"), WithClock(func() time.Time { return now }))

		Convey("When a token it issued is verified", func() {
			tok, err := v.Issue(Identity{Subject: "u1", Email: " Jose@Kart.AR ", Name: " José Pérez "}, time.Hour)
			So(err, ShouldBeNil)

			id, err := v.Verify(ctx, tok)

			Convey("Then the identity is normalized", func() {
				So(err, ShouldBeNil)
				So(id.Email, ShouldEqual, "jose@kart.ar")
				So(id.Name, ShouldEqual, "José Pérez")
				So(id.Subject, ShouldEqual, "u1")
			})
		})

		Convey("When the token expired", func() {
			tok, _ := v.Issue(Identity{Email: "a@b.c"}, time.Minute)
			later := NewVerifier("s3cret", WithIssuer("kart-auth"), WithAudience("kartboard"), WithClock(func() time.Time { return now.Add(time.Hour) }))
			_, err := later.Verify(ctx, tok)
			So(errors.Is(err, ErrInvalidToken), ShouldBeTrue)
		})

		Convey("When the signature does not match", func() {
			other := NewVerifier("other", WithIssuer("kart-auth"), WithAudience("kartboard"), WithClock(func() time.Time { return now }))
			tok, _ := other.Issue(Identity{Email: "a@b.c"}, time.Hour)
			_, err := v.Verify(ctx, tok)
			So(errors.Is(err, ErrInvalidToken), ShouldBeTrue)
		})

		Convey("When the audience differs", func() {
			other := NewVerifier("s3cret", WithIssuer("kart-auth"), WithAudience("elsewhere"), WithClock(func() time.Time { return now }))
			tok, _ := other.Issue(Identity{Email: "a@b.c"}, time.Hour)
			_, err := v.Verify(ctx, tok)
			So(errors.Is(err, ErrInvalidToken), ShouldBeTrue)
		})

		Convey("When the algorithm is not HS256", func() {
			claims := Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}}
			tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("s3cret"))
			So(err, ShouldBeNil)
			_, err = v.Verify(ctx, tok)
			So(errors.Is(err, ErrInvalidToken), ShouldBeTrue)
		})

		Convey("When the email is explicitly unverified", func() {
			f := false
			claims := Claims{
				Email:         "a@b.c",
				EmailVerified: &f,
				RegisteredClaims: jwt.RegisteredClaims{
					Issuer:    "kart-auth",
					Audience:  jwt.ClaimStrings{"kartboard"},
					ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
				},
			}
			tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s3cret"))
			_, err := v.Verify(ctx, tok)
			So(errors.Is(err, ErrUnverifiedEmail), ShouldBeTrue)
			So(IsAuthError(err), ShouldBeTrue)
		})
	})

	Convey("Given a verifier without a secret", t, func() {
		v := NewVerifier("")
		_, err := v.Verify(context.Background(), "anything")
		So(errors.Is(err, ErrDisabled), ShouldBeTrue)
		So(v.Enabled(), ShouldBeFalse)
	})
}

func TestFromHeader(t *testing.T) {
	Convey("Given Authorization header values", t, func() {
		tok, err := FromHeader("Bearer abc.def")
		So(err, ShouldBeNil)
		So(tok, ShouldEqual, "abc.def")

		tok, err = FromHeader("bearer   xyz ")
		So(err, ShouldBeNil)
		So(tok, ShouldEqual, "xyz")

		for _, h := range []string{"", "Basic abc", "Bearer", "Bearer  "} {
			_, err = FromHeader(h)
			So(errors.Is(err, ErrMissingToken), ShouldBeTrue)
		}
	})
}
