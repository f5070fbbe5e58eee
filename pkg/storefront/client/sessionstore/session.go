// Package sessionstore keeps a shopper's cart and wishlist on the client
// between runs. A session is loaded once when it starts and saved when it
// ends; nothing is held in package state.
package sessionstore

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type Line struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

type Session struct {
	Cart     []Line      `json:"cart"`
	Wishlist []uuid.UUID `json:"wishlist"`
}

// Load reads the session at filePath. A missing file starts an empty session.
func Load(filePath string) (*Session, error) {
	file, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return &Session{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read session")
	}

	var session Session
	if err := json.Unmarshal(file, &session); err != nil {
		return nil, errors.Wrapf(err, "corrupt session file %s", filePath)
	}
	return &session, nil
}

// Save replaces the file at filePath; readers never observe a partial write.
func Save(filePath string, session *Session) error {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".session-*")
	if err != nil {
		return errors.Wrap(err, "failed to create session file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to write session")
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filePath)
}

func (s *Session) AddToCart(productID uuid.UUID, quantity int) error {
	if productID == uuid.Nil || quantity <= 0 {
		return errors.New("product and a positive quantity are required")
	}
	for i := range s.Cart {
		if s.Cart[i].ProductID == productID {
			s.Cart[i].Quantity += quantity
			return nil
		}
	}
	s.Cart = append(s.Cart, Line{ProductID: productID, Quantity: quantity})
	return nil
}

// RemoveFromCart reports whether the product was in the cart.
func (s *Session) RemoveFromCart(productID uuid.UUID) bool {
	for i := range s.Cart {
		if s.Cart[i].ProductID == productID {
			s.Cart = append(s.Cart[:i], s.Cart[i+1:]...)
			return true
		}
	}
	return false
}

// ToggleWishlist reports whether the product is in the wishlist afterwards.
func (s *Session) ToggleWishlist(productID uuid.UUID) bool {
	for i, id := range s.Wishlist {
		if id == productID {
			s.Wishlist = append(s.Wishlist[:i], s.Wishlist[i+1:]...)
			return false
		}
	}
	s.Wishlist = append(s.Wishlist, productID)
	return true
}
