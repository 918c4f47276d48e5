package jwt

import (
	"errors"
	"fmt"
	"log"
	"time"

	"kopimatic/domain"
	"kopimatic/internal/utils"

	"github.com/golang-jwt/jwt/v4"
)

type (
	JWTService interface {
		GenerateTokenStaff(staffID string, role string) string
		ValidateTokenStaff(token string) (*jwt.Token, error)
		GetStaffIDByToken(token string) (string, string, error)
	}

	jwtStaffClaim struct {
		StaffID string `json:"staff_id"`
		Role    string `json:"role"`
		jwt.RegisteredClaims
	}

	jwtService struct {
		secretKey string
		issuer    string
	}
)

func getSecretKey() string {
	utils.LoadConfig()
	return utils.GetConfig("JWT_SECRET")
}

func NewJWTService() JWTService {
	return &jwtService{
		secretKey: getSecretKey(),
		issuer:    "KOPIMATIC",
	}
}

func (j *jwtService) GenerateTokenStaff(staffID string, role string) string {
	claims := jwtStaffClaim{
		staffID,
		role,
		jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute * 120)),
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tx, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		log.Println(err)
	}
	return tx
}

func (j *jwtService) parseToken(t_ *jwt.Token) (any, error) {
	if _, ok := t_.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", t_.Header["alg"])
	}
	return []byte(j.secretKey), nil
}

func (j *jwtService) ValidateTokenStaff(token string) (*jwt.Token, error) {
	return jwt.ParseWithClaims(token, &jwtStaffClaim{}, j.parseToken)
}

func (j *jwtService) GetStaffIDByToken(token string) (string, string, error) {
	t_Token, err := j.ValidateTokenStaff(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", domain.ErrTokenExpired
		}
		return "", "", domain.ErrTokenInvalid
	}
	if !t_Token.Valid {
		return "", "", domain.ErrTokenInvalid
	}

	claims := t_Token.Claims.(*jwtStaffClaim)

	id := fmt.Sprintf("%v", claims.StaffID)
	role := fmt.Sprintf("%v", claims.Role)
	return id, role, nil
}
